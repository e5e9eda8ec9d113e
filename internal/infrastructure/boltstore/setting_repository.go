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

// SettingRepository implements ports.SettingRepository on bbolt. Lookups by
// name scan the bucket, which is fine for the few hundred keys an application
// usually carries.
type SettingRepository struct {
	db     *Database
	logger *logrus.Logger
}

func NewSettingRepository(database *Database, logger *logrus.Logger) ports.SettingRepository {
	return &SettingRepository{db: database, logger: logger}
}

func (r *SettingRepository) findOne(match func(*settingRecord) bool, prefer func(a, b *settingRecord) bool) (*setting.Setting, bool, error) {
	var out *setting.Setting
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		var best *settingRecord
		if err := eachSetting(tx, func(rec *settingRecord) bool {
			if match(rec) && (best == nil || (prefer != nil && prefer(rec, best))) {
				best = rec
			}
			return true
		}); err != nil {
			return err
		}
		if best == nil {
			return nil
		}
		s, err := best.toSetting(tx)
		out = s
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// FindByName returns the setting with the given name, preferring the uncategorized one.
func (r *SettingRepository) FindByName(_ context.Context, name string) (*setting.Setting, bool, error) {
	s, ok, err := r.findOne(
		func(rec *settingRecord) bool { return rec.Name == name },
		func(a, b *settingRecord) bool {
			if (a.CategoryID == nil) != (b.CategoryID == nil) {
				return a.CategoryID == nil
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get setting by name: %w", err)
	}
	return s, ok, nil
}

func (r *SettingRepository) FindByCategoryAndName(_ context.Context, categoryID *uuid.UUID, name string) (*setting.Setting, bool, error) {
	s, ok, err := r.findOne(func(rec *settingRecord) bool {
		return rec.Name == name && rec.sameScope(categoryID)
	}, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get setting by category and name: %w", err)
	}
	return s, ok, nil
}

func (r *SettingRepository) FindAllInGroup(_ context.Context, categoryName string) ([]*setting.Setting, error) {
	var out []*setting.Setting
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		c, err := findCategoryByName(tx, categoryName)
		if err != nil || c == nil {
			return err
		}
		var scanErr error
		err = eachSetting(tx, func(rec *settingRecord) bool {
			if rec.CategoryID == nil || *rec.CategoryID != c.ID {
				return true
			}
			s, err := rec.toSetting(tx)
			if err != nil {
				scanErr = err
				return false
			}
			out = append(out, s)
			return true
		})
		if err != nil {
			return err
		}
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	slices.SortFunc(out, func(a, b *setting.Setting) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// Save inserts the setting or replaces the record with the same id. Writers are
// serialized by bbolt, so the uniqueness check and the put are atomic.
func (r *SettingRepository) Save(_ context.Context, s *setting.Setting) error {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	rec, err := newSettingRecord(s)
	if err != nil {
		return err
	}

	err = r.db.DB.Update(func(tx *bolt.Tx) error {
		if rec.CategoryID != nil {
			if _, ok, err := getCategory(tx, *rec.CategoryID); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("%w: id %s", setting.ErrCategoryNotFound, *rec.CategoryID)
			}
		}
		duplicate := false
		if err := eachSetting(tx, func(other *settingRecord) bool {
			if other.ID != rec.ID && other.Name == rec.Name && other.sameScope(rec.CategoryID) {
				duplicate = true
				return false
			}
			return true
		}); err != nil {
			return err
		}
		if duplicate {
			return fmt.Errorf("%w: %s", setting.ErrDuplicate, rec.Name)
		}
		return putJSON(tx.Bucket(settingsBucket), rec.ID, rec)
	})
	if err != nil && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"name": s.Name, "id": s.ID}).WithError(err).Debug("bolt setting save failed")
	}
	return err
}

func (r *SettingRepository) GetByID(_ context.Context, id uuid.UUID) (*setting.Setting, error) {
	var out *setting.Setting
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(settingsBucket).Get(id[:])
		if v == nil {
			return fmt.Errorf("%w: id %s", setting.ErrSettingNotFound, id)
		}
		var rec settingRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("failed to decode setting %s: %w", id, err)
		}
		s, err := rec.toSetting(tx)
		out = s
		return err
	})
	return out, err
}

func (r *SettingRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.db.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(settingsBucket)
		if b.Get(id[:]) == nil {
			return fmt.Errorf("%w: id %s", setting.ErrSettingNotFound, id)
		}
		return b.Delete(id[:])
	})
}

// List pages through settings ordered uncategorized first, then by category and name.
func (r *SettingRepository) List(_ context.Context, limit, offset int) ([]*setting.Setting, error) {
	var all []*setting.Setting
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		var scanErr error
		err := eachSetting(tx, func(rec *settingRecord) bool {
			s, err := rec.toSetting(tx)
			if err != nil {
				scanErr = err
				return false
			}
			all = append(all, s)
			return true
		})
		if err != nil {
			return err
		}
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	slices.SortFunc(all, func(a, b *setting.Setting) int {
		if (a.Category == nil) != (b.Category == nil) {
			if a.Category == nil {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.CategoryName(), b.CategoryName()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if offset >= len(all) {
		return []*setting.Setting{}, nil
	}
	all = all[max(offset, 0):]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *SettingRepository) Count(_ context.Context) (int, error) {
	var n int
	err := r.db.DB.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(settingsBucket).Stats().KeyN
		return nil
	})
	return n, err
}
