package setting

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidType      = errors.New("invalid setting type")
	ErrInvalidValue     = errors.New("invalid setting value")
	ErrSettingNotFound  = errors.New("setting not found")
	ErrCategoryNotFound = errors.New("setting category not found")
	// ErrDuplicate is returned by repositories when a save violates a uniqueness constraint.
	ErrDuplicate = errors.New("setting already exists")
)

// Category groups settings for administration and bulk reads.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Setting is a single named, typed configuration value.
type Setting struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      ValueType `json:"type"`
	Value     any       `json:"value"`
	Comment   string    `json:"comment,omitempty"`
	Category  *Category `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryID returns the id of the owning category, or nil when uncategorized.
func (s *Setting) CategoryID() *uuid.UUID {
	if s == nil || s.Category == nil {
		return nil
	}
	id := s.Category.ID
	return &id
}

// CategoryName returns the owning category name, or "" when uncategorized.
func (s *Setting) CategoryName() string {
	if s == nil || s.Category == nil {
		return ""
	}
	return s.Category.Name
}

// SetValue normalizes v against the setting type and assigns it.
func (s *Setting) SetValue(v any) error {
	n, err := s.Type.Normalize(v)
	if err != nil {
		return err
	}
	s.Value = n
	s.UpdatedAt = time.Now()
	return nil
}

// CreateSettingRequest describes a setting to create.
type CreateSettingRequest struct {
	Category      string    `json:"category"`
	Name          string    `json:"name"`
	Type          ValueType `json:"type"`
	Value         any       `json:"value"`
	Comment       string    `json:"comment"`
	MultiLanguage bool      `json:"multi_language"`
}

// CreateCategoryRequest describes a category to create.
type CreateCategoryRequest struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// UpdateValueRequest carries a new value for an existing setting.
type UpdateValueRequest struct {
	Value any `json:"value"`
}

// SaveSettingRequest is the administrative full-record edit of a setting.
type SaveSettingRequest struct {
	Name     *string    `json:"name,omitempty"`
	Type     *ValueType `json:"type,omitempty"`
	Value    *any       `json:"value,omitempty"`
	Comment  *string    `json:"comment,omitempty"`
	Category *string    `json:"category,omitempty"`
}
