package item

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Repository defines the interface for item persistence operations.
type Repository interface {
	// GetByName retrieves an item definition.
	// Returns ErrItemNotFound if the item does not exist.
	GetByName(ctx context.Context, name string) (*Definition, error)

	// List retrieves all item definitions ordered by name.
	List(ctx context.Context) ([]Definition, error)

	// Create inserts a new item.
	// Returns ErrItemExists if the name is taken.
	Create(ctx context.Context, d *Definition) error

	// Update modifies an existing item's definition (not its state).
	// Returns ErrItemNotFound if the item does not exist.
	Update(ctx context.Context, d *Definition) error

	// Delete removes an item.
	// Returns ErrItemNotFound if the item does not exist.
	Delete(ctx context.Context, name string) error

	// UpdateState stores the last known state of an item.
	UpdateState(ctx context.Context, name string, state types.State, at time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `
	SELECT name, label, type, protocol, address, tags, state,
		state_updated_at, created_at, updated_at
	FROM items`

// GetByName retrieves an item definition by name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Definition, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" WHERE name = ?", name)
	d, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("querying item by name: %w", err)
	}
	return d, nil
}

// List retrieves all item definitions.
func (r *SQLiteRepository) List(ctx context.Context) ([]Definition, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		defs = append(defs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return defs, nil
}

// Create inserts a new item.
func (r *SQLiteRepository) Create(ctx context.Context, d *Definition) error {
	tagsJSON, err := marshalTags(d.Tags)
	if err != nil {
		return err
	}
	stateJSON, err := marshalState(d.State)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO items (
			name, label, type, protocol, address, tags, state,
			state_updated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.Name,
		d.Label,
		string(d.Type),
		string(d.Protocol),
		d.Address,
		tagsJSON,
		stateJSON,
		nullableTime(d.StateUpdatedAt),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrItemExists
		}
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// Update modifies an existing item's definition.
func (r *SQLiteRepository) Update(ctx context.Context, d *Definition) error {
	tagsJSON, err := marshalTags(d.Tags)
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE items
		SET label = ?, type = ?, protocol = ?, address = ?, tags = ?, updated_at = ?
		WHERE name = ?`

	result, err := r.db.ExecContext(ctx, query,
		d.Label,
		string(d.Type),
		string(d.Protocol),
		d.Address,
		tagsJSON,
		d.UpdatedAt.Format(time.RFC3339),
		d.Name,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return checkAffected(result)
}

// Delete removes an item.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return checkAffected(result)
}

// UpdateState stores the last known state of an item.
func (r *SQLiteRepository) UpdateState(ctx context.Context, name string, state types.State, at time.Time) error {
	stateJSON, err := marshalState(state)
	if err != nil {
		return err
	}

	ts := at.UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET state = ?, state_updated_at = ? WHERE name = ?",
		stateJSON, ts, name,
	)
	if err != nil {
		return fmt.Errorf("updating item state: %w", err)
	}
	return checkAffected(result)
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(scanner rowScanner) (*Definition, error) {
	var d Definition
	var itemType, protocol, tagsJSON, createdAt, updatedAt string
	var stateJSON, stateUpdatedAt sql.NullString

	if err := scanner.Scan(
		&d.Name, &d.Label, &itemType, &protocol, &d.Address, &tagsJSON,
		&stateJSON, &stateUpdatedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	d.Type = Type(itemType)
	d.Protocol = Protocol(protocol)

	if err := json.Unmarshal([]byte(tagsJSON), &d.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}
	if stateJSON.Valid && stateJSON.String != "" {
		var state any
		if err := json.Unmarshal([]byte(stateJSON.String), &state); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		d.State = state
	}
	if stateUpdatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, stateUpdatedAt.String); err == nil {
			d.StateUpdatedAt = &t
		}
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled

	return &d, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshalling tags: %w", err)
	}
	return string(b), nil
}

func marshalState(state types.State) (sql.NullString, error) {
	if state == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(state)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling state: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
