package ports

import (
	"context"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/google/uuid"
)

// SettingRepository is the durable store of settings.
// Find methods report absence with ok=false and a nil error.
type SettingRepository interface {
	FindByName(ctx context.Context, name string) (*setting.Setting, bool, error)
	// FindByCategoryAndName resolves a setting inside a category; a nil categoryID
	// matches uncategorized settings only.
	FindByCategoryAndName(ctx context.Context, categoryID *uuid.UUID, name string) (*setting.Setting, bool, error)
	FindAllInGroup(ctx context.Context, categoryName string) ([]*setting.Setting, error)
	// Save inserts or updates by ID. Uniqueness violations return setting.ErrDuplicate.
	Save(ctx context.Context, s *setting.Setting) error

	GetByID(ctx context.Context, id uuid.UUID) (*setting.Setting, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*setting.Setting, error)
	Count(ctx context.Context) (int, error)
}

// CategoryRepository is the durable store of setting categories. Save is immediate.
type CategoryRepository interface {
	FindByName(ctx context.Context, name string) (*setting.Category, bool, error)
	Save(ctx context.Context, c *setting.Category) error

	GetByID(ctx context.Context, id uuid.UUID) (*setting.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*setting.Category, error)
}

// LocaleProvider lists the locales multi-language settings are created for.
type LocaleProvider interface {
	Locales() []string
}

// SettingsMetrics observes how lookups were served and which cache keys were dropped.
type SettingsMetrics interface {
	LookupServed(scope, tier string)
	CacheInvalidated(scope string, ok bool)
}

// GetOptions carry the auto-creation parameters of a read.
type GetOptions struct {
	Type    setting.ValueType
	Comment string
	Default any
	Lang    string
}

type GetOption func(*GetOptions)

// WithType sets the type used when the setting has to be created.
func WithType(t setting.ValueType) GetOption { return func(o *GetOptions) { o.Type = t } }

// WithComment sets the comment used when the setting has to be created.
func WithComment(c string) GetOption { return func(o *GetOptions) { o.Comment = c } }

// WithDefault sets the value stored and returned when the setting has to be created.
func WithDefault(v any) GetOption { return func(o *GetOptions) { o.Default = v } }

// WithLang reads the localized variant name_<lang>.
func WithLang(lang string) GetOption { return func(o *GetOptions) { o.Lang = lang } }

// SettingsService is the cache-coherent access layer over settings and categories.
// An instance memoizes what it has read and must not be shared between goroutines.
type SettingsService interface {
	Get(ctx context.Context, name string, opts ...GetOption) (any, error)
	GetString(ctx context.Context, name string, opts ...GetOption) (string, error)
	GetBool(ctx context.Context, name string, opts ...GetOption) (bool, error)
	GetInt(ctx context.Context, name string, opts ...GetOption) (int64, error)
	GetFloat(ctx context.Context, name string, opts ...GetOption) (float64, error)
	Group(ctx context.Context, categoryName string) (map[string]any, error)

	UpdateValue(ctx context.Context, name string, value any) error
	UpdateGroupedValue(ctx context.Context, categoryName, name string, value any) error
	Create(ctx context.Context, req *setting.CreateSettingRequest) ([]*setting.Setting, error)
	CreateGroup(ctx context.Context, req *setting.CreateCategoryRequest) (*setting.Category, error)
	EnsureCategory(ctx context.Context, name string) (*setting.Category, error)

	ClearCache(ctx context.Context, name string) bool
	ClearGroupCache(ctx context.Context, categoryName string) bool
	InvalidateLocal(name string)
	InvalidateLocalGroup(categoryName string)
}

// SettingsServiceFactory hands out a fresh SettingsService per unit of work.
type SettingsServiceFactory interface {
	New() SettingsService
}

// SettingsAdminService covers administrative edits made outside the read path.
// Every mutation clears the affected cache keys after it is persisted.
type SettingsAdminService interface {
	ListSettings(ctx context.Context, limit, offset int) ([]*setting.Setting, int, error)
	GetSetting(ctx context.Context, id uuid.UUID) (*setting.Setting, error)
	SaveSetting(ctx context.Context, id uuid.UUID, req *setting.SaveSettingRequest) (*setting.Setting, error)
	DeleteSetting(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*setting.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}
