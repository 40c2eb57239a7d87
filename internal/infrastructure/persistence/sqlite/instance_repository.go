package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

const instanceColumns = `id, definition_id, occurs_on, status, notes, completed_at, created_at, updated_at`

func scanInstance(row rowScanner) (*domain.Instance, error) {
	var (
		inst                 domain.Instance
		occursOn, status     string
		completedAt          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&inst.ID, &inst.DefinitionID, &occursOn, &status, &inst.Notes, &completedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if inst.OccursOn, err = civil.ParseDate(occursOn); err != nil {
		return nil, fmt.Errorf("failed to parse occurs_on: %w", err)
	}
	inst.Status = domain.InstanceStatus(status)
	if inst.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	if inst.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if inst.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &inst, nil
}

// FindInstanceByID retrieves a single instance.
func (s *Store) FindInstanceByID(ctx context.Context, id string) (*domain.Instance, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)
	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInstanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return inst, nil
}

// ListInstances retrieves instances ordered by date, then definition.
func (s *Store) ListInstances(ctx context.Context, params domain.ListInstancesParams) ([]*domain.Instance, error) {
	var (
		conditions []string
		args       []any
	)
	if params.DefinitionID != nil {
		conditions = append(conditions, "definition_id = ?")
		args = append(args, *params.DefinitionID)
	}
	if params.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*params.Status))
	}
	if params.From != nil {
		conditions = append(conditions, "occurs_on >= ?")
		args = append(args, params.From.String())
	}
	if params.To != nil {
		conditions = append(conditions, "occurs_on <= ?")
		args = append(args, params.To.String())
	}

	query := `SELECT ` + instanceColumns + ` FROM instances`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY occurs_on, definition_id`
	if params.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, params.Limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
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

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}
	for _, field := range params.UpdateMask {
		switch field {
		case domain.FieldInstanceStatus:
			sets = append(sets, "status = ?", "completed_at = ?")
			args = append(args, string(*params.Status), formatTimePtr(params.CompletedAt))
		case domain.FieldInstanceNotes:
			notes := ""
			if params.Notes != nil {
				notes = *params.Notes
			}
			sets = append(sets, "notes = ?")
			args = append(args, notes)
		}
	}
	args = append(args, params.InstanceID)

	res, err := s.conn.ExecContext(ctx, `UPDATE instances SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update instance: %w", err)
	}
	if err := requireAffected(res, domain.ErrInstanceNotFound); err != nil {
		return nil, err
	}
	return s.FindInstanceByID(ctx, params.InstanceID)
}

// BatchInsertInstancesIgnoreConflict inserts instances in one transaction.
// Duplicates on (definition_id, occurs_on) are silently ignored.
// Returns the number of rows actually inserted.
func (s *Store) BatchInsertInstancesIgnoreConflict(ctx context.Context, instances []domain.Instance) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *Store) error {
		for _, inst := range instances {
			res, err := tx.conn.ExecContext(ctx, `
				INSERT INTO instances (id, definition_id, occurs_on, status, notes, completed_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (definition_id, occurs_on) DO NOTHING`,
				inst.ID, inst.DefinitionID, inst.OccursOn.String(), string(inst.Status), inst.Notes,
				formatTimePtr(inst.CompletedAt), formatTime(inst.CreatedAt), formatTime(inst.UpdatedAt))
			if err != nil {
				return fmt.Errorf("failed to insert instance %s: %w", inst.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// DeletePendingInstancesFrom deletes pending instances of a definition dated on or after from.
func (s *Store) DeletePendingInstancesFrom(ctx context.Context, definitionID string, from civil.Date) (int, error) {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM instances
		WHERE definition_id = ? AND status = 'pending' AND occurs_on >= ?`,
		definitionID, from.String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending instances: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}
