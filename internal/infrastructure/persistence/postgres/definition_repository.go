package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/rezkam/cadence/internal/domain"
)

// CreateDefinition persists a new definition.
func (s *Store) CreateDefinition(ctx context.Context, def *domain.Definition) error {
	if !validID(def.ID) {
		return fmt.Errorf("%w: definition %s", domain.ErrInvalidID, def.ID)
	}
	ruleJSON, err := domain.MarshalRule(def.Rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO definitions (id, category, title, notes, rule_type, rule, generated_through, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		def.ID, def.Category, def.Title, def.Notes, string(def.Rule.Type()), ruleJSON,
		civilPtrToPgDate(def.GeneratedThrough), def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert definition: %w", err)
	}
	return nil
}

// FindDefinitionByID retrieves a definition by its ID.
func (s *Store) FindDefinitionByID(ctx context.Context, id string) (*domain.Definition, error) {
	if !validID(id) {
		return nil, domain.ErrDefinitionNotFound
	}

	row := s.db.QueryRow(ctx, `SELECT `+definitionColumns+` FROM definitions WHERE id = $1`, id)
	def, err := scanDefinition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDefinitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get definition: %w", err)
	}
	return def, nil
}

// ListDefinitions retrieves definitions ordered by category, then title.
func (s *Store) ListDefinitions(ctx context.Context, params domain.ListDefinitionsParams) ([]*domain.Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM definitions`
	args := pgx.NamedArgs{}
	if params.Category != nil {
		query += ` WHERE category = @category`
		args["category"] = *params.Category
	}
	query += ` ORDER BY category, title, id`

	rows, err := s.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	return collectDefinitions(rows)
}

// UpdateDefinitionRule replaces a definition's rule.
func (s *Store) UpdateDefinitionRule(ctx context.Context, id string, rule domain.Rule) error {
	if !validID(id) {
		return domain.ErrDefinitionNotFound
	}
	ruleJSON, err := domain.MarshalRule(rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE definitions SET rule_type = $2, rule = $3, updated_at = $4
		WHERE id = $1`,
		id, string(rule.Type()), ruleJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDefinitionNotFound
	}
	return nil
}

// DeleteDefinition deletes a definition; its instances cascade.
func (s *Store) DeleteDefinition(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrDefinitionNotFound
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDefinitionNotFound
	}
	return nil
}

// FindStaleDefinitions returns definitions never populated or populated only up to a date before through.
func (s *Store) FindStaleDefinitions(ctx context.Context, through civil.Date) ([]*domain.Definition, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+definitionColumns+` FROM definitions
		WHERE generated_through IS NULL OR generated_through < $1
		ORDER BY created_at, id`,
		civilToPgDate(through))
	if err != nil {
		return nil, fmt.Errorf("failed to find stale definitions: %w", err)
	}
	return collectDefinitions(rows)
}

// SetGeneratedThrough records the last date instances were generated through.
func (s *Store) SetGeneratedThrough(ctx context.Context, definitionID string, through civil.Date) error {
	if !validID(definitionID) {
		return domain.ErrDefinitionNotFound
	}

	tag, err := s.db.Exec(ctx, `UPDATE definitions SET generated_through = $2 WHERE id = $1`,
		definitionID, civilToPgDate(through))
	if err != nil {
		return fmt.Errorf("failed to set generated through: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDefinitionNotFound
	}
	return nil
}

func collectDefinitions(rows pgx.Rows) ([]*domain.Definition, error) {
	defer rows.Close()

	var defs []*domain.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate definitions: %w", err)
	}
	return defs, nil
}
