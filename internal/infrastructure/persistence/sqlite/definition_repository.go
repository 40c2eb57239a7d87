package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

const definitionColumns = `id, category, title, notes, rule, generated_through, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*domain.Definition, error) {
	var (
		def                  domain.Definition
		ruleJSON             string
		generatedThrough     sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&def.ID, &def.Category, &def.Title, &def.Notes, &ruleJSON, &generatedThrough, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rule, err := domain.UnmarshalRule([]byte(ruleJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule of definition %s: %w", def.ID, err)
	}
	def.Rule = rule

	if generatedThrough.Valid {
		d, err := civil.ParseDate(generatedThrough.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse generated_through: %w", err)
		}
		def.GeneratedThrough = &d
	}
	if def.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if def.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &def, nil
}

// CreateDefinition persists a new definition.
func (s *Store) CreateDefinition(ctx context.Context, def *domain.Definition) error {
	ruleJSON, err := domain.MarshalRule(def.Rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}

	var generatedThrough sql.NullString
	if def.GeneratedThrough != nil {
		generatedThrough = sql.NullString{String: def.GeneratedThrough.String(), Valid: true}
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO definitions (id, category, title, notes, rule_type, rule, generated_through, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.Category, def.Title, def.Notes, string(def.Rule.Type()), string(ruleJSON),
		generatedThrough, formatTime(def.CreatedAt), formatTime(def.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert definition: %w", err)
	}
	return nil
}

// FindDefinitionByID retrieves a definition by its ID.
func (s *Store) FindDefinitionByID(ctx context.Context, id string) (*domain.Definition, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM definitions WHERE id = ?`, id)
	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	var args []any
	if params.Category != nil {
		query += ` WHERE category = ?`
		args = append(args, *params.Category)
	}
	query += ` ORDER BY category, title, id`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	return collectDefinitions(rows)
}

// UpdateDefinitionRule replaces a definition's rule.
func (s *Store) UpdateDefinitionRule(ctx context.Context, id string, rule domain.Rule) error {
	ruleJSON, err := domain.MarshalRule(rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE definitions SET rule_type = ?, rule = ?, updated_at = ?
		WHERE id = ?`,
		string(rule.Type()), string(ruleJSON), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireAffected(res, domain.ErrDefinitionNotFound)
}

// DeleteDefinition deletes a definition; its instances cascade.
func (s *Store) DeleteDefinition(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete definition: %w", err)
	}
	return requireAffected(res, domain.ErrDefinitionNotFound)
}

// FindStaleDefinitions returns definitions never populated or populated only up to a date before through.
func (s *Store) FindStaleDefinitions(ctx context.Context, through civil.Date) ([]*domain.Definition, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+definitionColumns+` FROM definitions
		WHERE generated_through IS NULL OR generated_through < ?
		ORDER BY created_at, id`,
		through.String())
	if err != nil {
		return nil, fmt.Errorf("failed to find stale definitions: %w", err)
	}
	return collectDefinitions(rows)
}

// SetGeneratedThrough records the last date instances were generated through.
func (s *Store) SetGeneratedThrough(ctx context.Context, definitionID string, through civil.Date) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE definitions SET generated_through = ? WHERE id = ?`,
		through.String(), definitionID)
	if err != nil {
		return fmt.Errorf("failed to set generated through: %w", err)
	}
	return requireAffected(res, domain.ErrDefinitionNotFound)
}

func collectDefinitions(rows *sql.Rows) ([]*domain.Definition, error) {
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

// requireAffected maps a zero-row UPDATE/DELETE to notFound.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
