package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StoredModel is a persisted rule model source.
type StoredModel struct {
	Name      string
	Content   string
	Checksum  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines the interface for rule model persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Get retrieves a model by name.
	// Returns ErrModelNotFound if the model does not exist.
	Get(ctx context.Context, name string) (*StoredModel, error)

	// List retrieves all models ordered by name.
	List(ctx context.Context) ([]StoredModel, error)

	// Save inserts or replaces a model. created reports whether the
	// model did not exist before.
	Save(ctx context.Context, m *StoredModel) (created bool, err error)

	// Delete removes a model by name.
	// Returns ErrModelNotFound if the model does not exist.
	Delete(ctx context.Context, name string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// modelColumns is the SELECT column list for model queries.
const modelColumns = `name, content, checksum, created_at, updated_at`

// Get retrieves a model by name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*StoredModel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM rule_models WHERE name = ?`, name)
	m, err := scanModel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("querying model: %w", err)
	}
	return m, nil
}

// List retrieves all models ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]StoredModel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+modelColumns+` FROM rule_models ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	defer rows.Close()

	var models []StoredModel
	for rows.Next() {
		m, scanErr := scanModel(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning model: %w", scanErr)
		}
		models = append(models, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating models: %w", err)
	}
	return models, nil
}

// Save inserts a new model or updates the content of an existing one.
func (r *SQLiteRepository) Save(ctx context.Context, m *StoredModel) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	var createdAt string
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM rule_models WHERE name = ?`, m.Name).Scan(&createdAt)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("querying model: %w", err)
	}

	now := time.Now().UTC()
	m.UpdatedAt = now
	if created {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rule_models (name, content, checksum, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			m.Name, m.Content, m.Checksum,
			m.CreatedAt.Format(time.RFC3339), m.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return false, fmt.Errorf("inserting model %q: concurrent insert: %w", m.Name, err)
			}
			return false, fmt.Errorf("inserting model: %w", err)
		}
	} else {
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
		_, err = tx.ExecContext(ctx, `
			UPDATE rule_models SET content = ?, checksum = ?, updated_at = ?
			WHERE name = ?`,
			m.Content, m.Checksum, m.UpdatedAt.Format(time.RFC3339), m.Name,
		)
		if err != nil {
			return false, fmt.Errorf("updating model: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing model: %w", err)
	}
	return created, nil
}

// Delete removes a model by name.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rule_models WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting model: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrModelNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(scanner rowScanner) (*StoredModel, error) {
	var (
		m                    StoredModel
		createdAt, updatedAt string
	)
	if err := scanner.Scan(&m.Name, &m.Content, &m.Checksum, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &m, nil
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
