package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/avatarctic/settings-store/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type categoryRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

func (r categoryRow) toCategory() *setting.Category {
	return &setting.Category{ID: r.ID, Name: r.Name, Comment: r.Comment, CreatedAt: r.CreatedAt}
}

// CategoryRepository implements ports.CategoryRepository on postgres.
type CategoryRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(database *db.Database, logger *logrus.Logger) ports.CategoryRepository {
	return &CategoryRepository{
		db:     database,
		logger: logger,
	}
}

// FindByName retrieves a category by its unique name
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*setting.Category, bool, error) {
	var row categoryRow
	query := `SELECT id, name, comment, created_at FROM setting_categories WHERE name = $1`

	if err := r.db.DB.GetContext(ctx, &row, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get category by name: %w", err)
	}
	return row.toCategory(), true, nil
}

// Save inserts the category or updates the row with the same id. It is not deferred.
func (r *CategoryRepository) Save(ctx context.Context, c *setting.Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO setting_categories (id, name, comment, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, comment = EXCLUDED.comment`

	if _, err := r.db.DB.ExecContext(ctx, query, c.ID, c.Name, c.Comment, c.CreatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: category %s", setting.ErrDuplicate, c.Name)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"category": c.Name}).WithError(err).Error("failed to save category")
		}
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*setting.Category, error) {
	var row categoryRow
	query := `SELECT id, name, comment, created_at FROM setting_categories WHERE id = $1`

	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", setting.ErrCategoryNotFound, id)
		}
		return nil, fmt.Errorf("failed to get category by ID: %w", err)
	}
	return row.toCategory(), nil
}

// Delete deletes a category; its settings are detached by the foreign key.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM setting_categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %s", setting.ErrCategoryNotFound, id)
	}

	return nil
}

// List returns all categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*setting.Category, error) {
	var rows []categoryRow
	if err := r.db.DB.SelectContext(ctx, &rows, `SELECT id, name, comment, created_at FROM setting_categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	out := make([]*setting.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCategory())
	}
	return out, nil
}
