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

const selectSetting = `
		SELECT s.id, s.name, s.type, s.value, s.comment, s.created_at, s.updated_at, s.category_id,
		       c.name AS category_name, c.comment AS category_comment, c.created_at AS category_created_at
		FROM settings s
		LEFT JOIN setting_categories c ON c.id = s.category_id`

// settingRow is the joined settings/setting_categories row.
type settingRow struct {
	ID                uuid.UUID      `db:"id"`
	Name              string         `db:"name"`
	Type              string         `db:"type"`
	Value             string         `db:"value"`
	Comment           string         `db:"comment"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
	CategoryID        uuid.NullUUID  `db:"category_id"`
	CategoryName      sql.NullString `db:"category_name"`
	CategoryComment   sql.NullString `db:"category_comment"`
	CategoryCreatedAt sql.NullTime   `db:"category_created_at"`
}

func (r settingRow) toSetting() (*setting.Setting, error) {
	t := setting.ValueType(r.Type)
	value, err := t.Decode(r.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode setting %q: %w", r.Name, err)
	}
	s := &setting.Setting{
		ID:        r.ID,
		Name:      r.Name,
		Type:      t,
		Value:     value,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.CategoryID.Valid {
		s.Category = &setting.Category{
			ID:        r.CategoryID.UUID,
			Name:      r.CategoryName.String,
			Comment:   r.CategoryComment.String,
			CreatedAt: r.CategoryCreatedAt.Time,
		}
	}
	return s, nil
}

// SettingRepository implements ports.SettingRepository on postgres.
type SettingRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(database *db.Database, logger *logrus.Logger) ports.SettingRepository {
	return &SettingRepository{
		db:     database,
		logger: logger,
	}
}

func (r *SettingRepository) findOne(ctx context.Context, query string, args ...any) (*setting.Setting, bool, error) {
	var row settingRow
	if err := r.db.DB.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	s, err := row.toSetting()
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// FindByName returns the setting with the given name, preferring the uncategorized one.
func (r *SettingRepository) FindByName(ctx context.Context, name string) (*setting.Setting, bool, error) {
	query := selectSetting + `
		WHERE s.name = $1
		ORDER BY s.category_id IS NOT NULL, s.created_at
		LIMIT 1`

	s, ok, err := r.findOne(ctx, query, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get setting by name: %w", err)
	}
	return s, ok, nil
}

// FindByCategoryAndName resolves a setting scoped to a category, or to no category when categoryID is nil.
func (r *SettingRepository) FindByCategoryAndName(ctx context.Context, categoryID *uuid.UUID, name string) (*setting.Setting, bool, error) {
	var (
		s   *setting.Setting
		ok  bool
		err error
	)
	if categoryID == nil {
		s, ok, err = r.findOne(ctx, selectSetting+`
		WHERE s.category_id IS NULL AND s.name = $1`, name)
	} else {
		s, ok, err = r.findOne(ctx, selectSetting+`
		WHERE s.category_id = $1 AND s.name = $2`, *categoryID, name)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get setting by category and name: %w", err)
	}
	return s, ok, nil
}

// FindAllInGroup returns every setting of the named category.
func (r *SettingRepository) FindAllInGroup(ctx context.Context, categoryName string) ([]*setting.Setting, error) {
	query := selectSetting + `
		WHERE c.name = $1
		ORDER BY s.name`

	return r.selectMany(ctx, query, categoryName)
}

func (r *SettingRepository) selectMany(ctx context.Context, query string, args ...any) ([]*setting.Setting, error) {
	var rows []settingRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	out := make([]*setting.Setting, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSetting()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Save inserts the setting or updates the row with the same id.
func (r *SettingRepository) Save(ctx context.Context, s *setting.Setting) error {
	raw, err := s.Type.Encode(s.Value)
	if err != nil {
		return err
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	var categoryID uuid.NullUUID
	if id := s.CategoryID(); id != nil {
		categoryID = uuid.NullUUID{UUID: *id, Valid: true}
	}

	query := `
		INSERT INTO settings (id, category_id, name, type, value, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET category_id = EXCLUDED.category_id, name = EXCLUDED.name, type = EXCLUDED.type,
		    value = EXCLUDED.value, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at`

	_, err = r.db.DB.ExecContext(ctx, query,
		s.ID, categoryID, s.Name, string(s.Type), raw, s.Comment, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", setting.ErrDuplicate, s.Name)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"name": s.Name, "id": s.ID}).WithError(err).Error("failed to save setting")
		}
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

// GetByID retrieves a setting by ID
func (r *SettingRepository) GetByID(ctx context.Context, id uuid.UUID) (*setting.Setting, error) {
	s, ok, err := r.findOne(ctx, selectSetting+`
		WHERE s.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get setting by ID: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: id %s", setting.ErrSettingNotFound, id)
	}
	return s, nil
}

// Delete deletes a setting by ID
func (r *SettingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM settings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %s", setting.ErrSettingNotFound, id)
	}

	return nil
}

// List retrieves settings with pagination
func (r *SettingRepository) List(ctx context.Context, limit, offset int) ([]*setting.Setting, error) {
	query := selectSetting + `
		ORDER BY c.name NULLS FIRST, s.name
		LIMIT $1 OFFSET $2`

	return r.selectMany(ctx, query, limit, offset)
}

// Count returns the total number of settings
func (r *SettingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM settings`); err != nil {
		return 0, fmt.Errorf("failed to count settings: %w", err)
	}
	return count, nil
}
