package boltstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// settingRecord is the stored form of a setting; the value is kept encoded.
type settingRecord struct {
	ID         uuid.UUID         `json:"id"`
	CategoryID *uuid.UUID        `json:"category_id,omitempty"`
	Name       string            `json:"name"`
	Type       setting.ValueType `json:"type"`
	Value      string            `json:"value"`
	Comment    string            `json:"comment"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type categoryRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func newSettingRecord(s *setting.Setting) (*settingRecord, error) {
	raw, err := s.Type.Encode(s.Value)
	if err != nil {
		return nil, err
	}
	return &settingRecord{
		ID:         s.ID,
		CategoryID: s.CategoryID(),
		Name:       s.Name,
		Type:       s.Type,
		Value:      raw,
		Comment:    s.Comment,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}, nil
}

// sameScope reports whether both records live in the same category, or both in none.
func (r *settingRecord) sameScope(categoryID *uuid.UUID) bool {
	if r.CategoryID == nil || categoryID == nil {
		return r.CategoryID == nil && categoryID == nil
	}
	return *r.CategoryID == *categoryID
}

func (r categoryRecord) toCategory() *setting.Category {
	return &setting.Category{ID: r.ID, Name: r.Name, Comment: r.Comment, CreatedAt: r.CreatedAt}
}

// toSetting decodes the record and attaches its category read from the same transaction.
func (r *settingRecord) toSetting(tx *bolt.Tx) (*setting.Setting, error) {
	value, err := r.Type.Decode(r.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode setting %q: %w", r.Name, err)
	}
	s := &setting.Setting{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		Value:     value,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.CategoryID != nil {
		c, ok, err := getCategory(tx, *r.CategoryID)
		if err != nil {
			return nil, err
		}
		if ok {
			s.Category = c.toCategory()
		}
	}
	return s, nil
}

func getCategory(tx *bolt.Tx, id uuid.UUID) (*categoryRecord, bool, error) {
	v := tx.Bucket(categoriesBucket).Get(id[:])
	if v == nil {
		return nil, false, nil
	}
	var rec categoryRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode category %s: %w", id, err)
	}
	return &rec, true, nil
}

func putJSON(b *bolt.Bucket, id uuid.UUID, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(id[:], buf)
}

// eachSetting decodes every stored setting record; returning false from fn stops the scan.
func eachSetting(tx *bolt.Tx, fn func(*settingRecord) bool) error {
	c := tx.Bucket(settingsBucket).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var rec settingRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("failed to decode setting record: %w", err)
		}
		if !fn(&rec) {
			return nil
		}
	}
	return nil
}

func eachCategory(tx *bolt.Tx, fn func(*categoryRecord) bool) error {
	c := tx.Bucket(categoriesBucket).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var rec categoryRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("failed to decode category record: %w", err)
		}
		if !fn(&rec) {
			return nil
		}
	}
	return nil
}

func findCategoryByName(tx *bolt.Tx, name string) (*categoryRecord, error) {
	var found *categoryRecord
	err := eachCategory(tx, func(rec *categoryRecord) bool {
		if rec.Name == name {
			found = rec
			return false
		}
		return true
	})
	return found, err
}
