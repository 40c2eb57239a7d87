package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/rezkam/cadence/internal/domain"
)

// FindInstanceByID retrieves a single instance.
func (s *Store) FindInstanceByID(ctx context.Context, id string) (*domain.Instance, error) {
	if !validID(id) {
		return nil, domain.ErrInstanceNotFound
	}

	row := s.db.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id)
	inst, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInstanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return inst, nil
}

// ListInstances retrieves instances ordered by date, then definition.
func (s *Store) ListInstances(ctx context.Context, params domain.ListInstancesParams) ([]*domain.Instance, error) {
	var conditions []string
	args := pgx.NamedArgs{}

	if params.DefinitionID != nil {
		if !validID(*params.DefinitionID) {
			return nil, nil
		}
		conditions = append(conditions, "definition_id = @definition_id")
		args["definition_id"] = *params.DefinitionID
	}
	if params.Status != nil {
		conditions = append(conditions, "status = @status")
		args["status"] = string(*params.Status)
	}
	if params.From != nil {
		conditions = append(conditions, "occurs_on >= @from")
		args["from"] = civilToPgDate(*params.From)
	}
	if params.To != nil {
		conditions = append(conditions, "occurs_on <= @to")
		args["to"] = civilToPgDate(*params.To)
	}

	query := `SELECT ` + instanceColumns + ` FROM instances`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY occurs_on, definition_id`
	if params.Limit > 0 {
		query += ` LIMIT @limit`
		args["limit"] = params.Limit
	}

	rows, err := s.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	var instances []*domain.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instances: %w", err)
	}
	return instances, nil
}

// UpdateInstance updates an instance using field mask.
// A status update also writes CompletedAt (NULL unless provided).
func (s *Store) UpdateInstance(ctx context.Context, params domain.UpdateInstanceParams) (*domain.Instance, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !validID(params.InstanceID) {
		return nil, domain.ErrInstanceNotFound
	}

	sets := []string{"updated_at = @updated_at"}
	args := pgx.NamedArgs{
		"id":         params.InstanceID,
		"updated_at": time.Now().UTC(),
	}
	for _, field := range params.UpdateMask {
		switch field {
		case domain.FieldInstanceStatus:
			sets = append(sets, "status = @status", "completed_at = @completed_at")
			args["status"] = string(*params.Status)
			args["completed_at"] = timePtrToPgtype(params.CompletedAt)
		case domain.FieldInstanceNotes:
			notes := ""
			if params.Notes != nil {
				notes = *params.Notes
			}
			sets = append(sets, "notes = @notes")
			args["notes"] = notes
		}
	}

	row := s.db.QueryRow(ctx, `
		UPDATE instances SET `+strings.Join(sets, ", ")+`
		WHERE id = @id
		RETURNING `+instanceColumns, args)
	inst, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInstanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update instance: %w", err)
	}
	return inst, nil
}

// BatchInsertInstancesIgnoreConflict inserts instances in one round trip.
// Duplicates on (definition_id, occurs_on) are silently ignored.
// Returns the number of rows actually inserted.
func (s *Store) BatchInsertInstancesIgnoreConflict(ctx context.Context, instances []domain.Instance) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, inst := range instances {
		if !validID(inst.ID) || !validID(inst.DefinitionID) {
			return 0, fmt.Errorf("%w: instance %s of definition %s", domain.ErrInvalidID, inst.ID, inst.DefinitionID)
		}
		batch.Queue(`
			INSERT INTO instances (id, definition_id, occurs_on, status, notes, completed_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (definition_id, occurs_on) DO NOTHING`,
			inst.ID, inst.DefinitionID, civilToPgDate(inst.OccursOn), string(inst.Status), inst.Notes,
			timePtrToPgtype(inst.CompletedAt), inst.CreatedAt, inst.UpdatedAt)
	}

	results := s.db.SendBatch(ctx, batch)
	inserted := 0
	for _, inst := range instances {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return inserted, fmt.Errorf("failed to insert instance %s: %w", inst.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return inserted, fmt.Errorf("failed to close batch: %w", err)
	}
	return inserted, nil
}

// DeletePendingInstancesFrom deletes pending instances of a definition dated on or after from.
func (s *Store) DeletePendingInstancesFrom(ctx context.Context, definitionID string, from civil.Date) (int, error) {
	if !validID(definitionID) {
		return 0, nil
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM instances
		WHERE definition_id = $1 AND status = 'pending' AND occurs_on >= $2`,
		definitionID, civilToPgDate(from))
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending instances: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
