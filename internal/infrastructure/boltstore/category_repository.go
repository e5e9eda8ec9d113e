package boltstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// CategoryRepository implements ports.CategoryRepository on bbolt.
type CategoryRepository struct {
	db     *Database
	logger *logrus.Logger
}

func NewCategoryRepository(database *Database, logger *logrus.Logger) ports.CategoryRepository {
	return &CategoryRepository{db: database, logger: logger}
}

func (r *CategoryRepository) FindByName(_ context.Context, name string) (*setting.Category, bool, error) {
	var out *setting.Category
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		rec, err := findCategoryByName(tx, name)
		if rec != nil {
			out = rec.toCategory()
		}
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get category by name: %w", err)
	}
	return out, out != nil, nil
}

func (r *CategoryRepository) Save(_ context.Context, c *setting.Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	rec := categoryRecord{ID: c.ID, Name: c.Name, Comment: c.Comment, CreatedAt: c.CreatedAt}
	err := r.db.DB.Update(func(tx *bolt.Tx) error {
		existing, err := findCategoryByName(tx, c.Name)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != c.ID {
			return fmt.Errorf("%w: category %s", setting.ErrDuplicate, c.Name)
		}
		return putJSON(tx.Bucket(categoriesBucket), rec.ID, rec)
	})
	if err != nil && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"category": c.Name}).WithError(err).Debug("bolt category save failed")
	}
	return err
}

func (r *CategoryRepository) GetByID(_ context.Context, id uuid.UUID) (*setting.Category, error) {
	var out *setting.Category
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		rec, ok, err := getCategory(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: id %s", setting.ErrCategoryNotFound, id)
		}
		out = rec.toCategory()
		return nil
	})
	return out, err
}

// Delete removes the category and detaches its settings in the same transaction.
func (r *CategoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.db.DB.Update(func(tx *bolt.Tx) error {
		categories := tx.Bucket(categoriesBucket)
		if categories.Get(id[:]) == nil {
			return fmt.Errorf("%w: id %s", setting.ErrCategoryNotFound, id)
		}

		var members, uncategorized []*settingRecord
		if err := eachSetting(tx, func(rec *settingRecord) bool {
			switch {
			case rec.CategoryID == nil:
				uncategorized = append(uncategorized, rec)
			case *rec.CategoryID == id:
				members = append(members, rec)
			}
			return true
		}); err != nil {
			return err
		}

		settings := tx.Bucket(settingsBucket)
		for _, m := range members {
			for _, u := range uncategorized {
				if u.Name == m.Name {
					return fmt.Errorf("%w: %s", setting.ErrDuplicate, m.Name)
				}
			}
			m.CategoryID = nil
			buf, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := settings.Put(m.ID[:], buf); err != nil {
				return err
			}
		}
		return categories.Delete(id[:])
	})
}

func (r *CategoryRepository) List(_ context.Context) ([]*setting.Category, error) {
	var out []*setting.Category
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		return eachCategory(tx, func(rec *categoryRecord) bool {
			out = append(out, rec.toCategory())
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	slices.SortFunc(out, func(a, b *setting.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}
