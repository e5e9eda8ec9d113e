package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix      = "settings_"
	cacheGroupKeyPrefix = "settings_category_"
)

const (
	scopeSetting = "setting"
	scopeGroup   = "group"

	tierMemo    = "memo"
	tierCache   = "cache"
	tierStore   = "store"
	tierCreated = "created"
)

// singleflight group coalescing store loads and auto-creation of the same key in-process.
// Flights run detached from the leader's cancellation since joiners share the result.
var sf singleflight.Group

// SettingsDeps are the collaborators shared by every SettingsService instance.
// Cache, Locales, Metrics and Logger are optional.
type SettingsDeps struct {
	Settings   ports.SettingRepository
	Categories ports.CategoryRepository
	Cache      ports.Cache
	CacheTTL   time.Duration
	Locales    ports.LocaleProvider
	Metrics    ports.SettingsMetrics
	Logger     *logrus.Logger
}

// SettingsService resolves settings through an instance-local memo, the shared
// cache and finally the durable store, creating missing settings on first read.
// It is not safe for concurrent use.
type SettingsService struct {
	repo       ports.SettingRepository
	categories ports.CategoryRepository
	cache      ports.Cache
	ttl        time.Duration
	locales    ports.LocaleProvider
	metrics    ports.SettingsMetrics
	logger     *logrus.Logger

	settings map[string]any
	groups   map[string]map[string]any
}

func NewSettingsService(deps SettingsDeps) ports.SettingsService {
	return &SettingsService{
		repo:       deps.Settings,
		categories: deps.Categories,
		cache:      deps.Cache,
		ttl:        deps.CacheTTL,
		locales:    deps.Locales,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		settings:   make(map[string]any),
		groups:     make(map[string]map[string]any),
	}
}

type settingsServiceFactory struct {
	deps SettingsDeps
}

// NewSettingsServiceFactory returns a factory producing one SettingsService per unit of work.
func NewSettingsServiceFactory(deps SettingsDeps) ports.SettingsServiceFactory {
	return &settingsServiceFactory{deps: deps}
}

func (f *settingsServiceFactory) New() ports.SettingsService {
	return NewSettingsService(f.deps)
}

func cacheKey(name string) string      { return cacheKeyPrefix + name }
func cacheGroupKey(name string) string { return cacheGroupKeyPrefix + name }

// localizedName is the lookup key of a setting, suffixed with the lowercased language when given.
func localizedName(name, lang string) string {
	if lang == "" {
		return name
	}
	return name + "_" + strings.ToLower(lang)
}

// memoValue maps nil to "" so a setting known to be empty is distinguishable from one never loaded.
func memoValue(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// cachedValue is the cache payload of one setting.
type cachedValue struct {
	Type  setting.ValueType `json:"type"`
	Value string            `json:"value"`
}

func newCachedValue(s *setting.Setting) (cachedValue, error) {
	raw, err := s.Type.Encode(s.Value)
	if err != nil {
		return cachedValue{}, err
	}
	return cachedValue{Type: s.Type, Value: raw}, nil
}

func (c cachedValue) decode() (any, error) {
	return c.Type.Decode(c.Value)
}

// Get returns the value of the named setting. A setting found nowhere is created
// with the type, comment and default given in opts, and the default is returned.
func (s *SettingsService) Get(ctx context.Context, name string, opts ...ports.GetOption) (any, error) {
	o := ports.GetOptions{Type: setting.TypeString}
	for _, opt := range opts {
		opt(&o)
	}
	key := localizedName(name, o.Lang)
	if v, ok := s.settings[key]; ok {
		s.observe(scopeSetting, tierMemo)
		return v, nil
	}

	v, ok, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		v, err = s.autoCreate(ctx, name, key, o)
		if err != nil {
			return nil, err
		}
	}
	s.settings[key] = memoValue(v)
	return s.settings[key], nil
}

type loadResult struct {
	value any
	found bool
}

// load reads key from the cache and then from the store, filling the cache on a store hit.
func (s *SettingsService) load(ctx context.Context, key string) (any, bool, error) {
	if v, ok := s.cacheGetValue(ctx, key); ok {
		s.observe(scopeSetting, tierCache)
		return v, true, nil
	}

	res, err, _ := sf.Do("setting:"+key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		st, ok, err := s.repo.FindByName(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return loadResult{}, nil
		}
		if cv, err := newCachedValue(st); err == nil {
			s.cacheSet(ctx, cacheKey(key), cv)
		}
		return loadResult{value: st.Value, found: true}, nil
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"name": key}).WithError(err).Error("failed to load setting from store")
		}
		return nil, false, fmt.Errorf("failed to load setting %q: %w", key, err)
	}
	lr, ok := res.(loadResult)
	if !ok {
		return nil, false, fmt.Errorf("unexpected type from singleflight result")
	}
	if lr.found {
		s.observe(scopeSetting, tierStore)
	}
	return lr.value, lr.found, nil
}

// autoCreate persists a missing setting seeded with the default. A concurrent
// creator winning a uniqueness constraint is not an error: its row is read back.
func (s *SettingsService) autoCreate(ctx context.Context, name, key string, o ports.GetOptions) (any, error) {
	def, err := o.Type.Normalize(o.Default)
	if err != nil {
		return nil, fmt.Errorf("invalid default for setting %q: %w", key, err)
	}
	_, err, _ = sf.Do("create:"+key, func() (any, error) {
		_, err := s.create(context.WithoutCancel(ctx), &setting.CreateSettingRequest{
			Name:          name,
			Type:          o.Type,
			Value:         def,
			Comment:       o.Comment,
			MultiLanguage: o.Lang != "",
		}, o.Lang)
		return nil, err
	})
	if err == nil {
		s.observe(scopeSetting, tierCreated)
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"name": key, "type": o.Type}).Info("setting auto-created")
		}
		return memoValue(def), nil
	}
	if !errors.Is(err, setting.ErrDuplicate) {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"name": key}).Debug("setting created concurrently; reading it back")
	}
	st, ok, ferr := s.repo.FindByName(ctx, key)
	if ferr != nil {
		return nil, fmt.Errorf("failed to load setting %q: %w", key, ferr)
	}
	if ok {
		return st.Value, nil
	}
	return memoValue(def), nil
}

func (s *SettingsService) GetString(ctx context.Context, name string, opts ...ports.GetOption) (string, error) {
	v, err := s.Get(ctx, name, opts...)
	if err != nil {
		return "", err
	}
	if str, ok := v.(string); ok {
		return str, nil
	}
	n, err := setting.TypeString.Normalize(v)
	if err != nil {
		return "", err
	}
	return n.(string), nil
}

func (s *SettingsService) GetBool(ctx context.Context, name string, opts ...ports.GetOption) (bool, error) {
	v, err := s.Get(ctx, name, append([]ports.GetOption{ports.WithType(setting.TypeBoolean)}, opts...)...)
	if err != nil {
		return false, err
	}
	n, err := setting.TypeBoolean.Normalize(v)
	if err != nil {
		return false, err
	}
	return n.(bool), nil
}

func (s *SettingsService) GetInt(ctx context.Context, name string, opts ...ports.GetOption) (int64, error) {
	v, err := s.Get(ctx, name, append([]ports.GetOption{ports.WithType(setting.TypeInteger)}, opts...)...)
	if err != nil {
		return 0, err
	}
	if str, ok := v.(string); ok && str == "" {
		return 0, nil
	}
	n, err := setting.TypeInteger.Normalize(v)
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

func (s *SettingsService) GetFloat(ctx context.Context, name string, opts ...ports.GetOption) (float64, error) {
	v, err := s.Get(ctx, name, append([]ports.GetOption{ports.WithType(setting.TypeFloat)}, opts...)...)
	if err != nil {
		return 0, err
	}
	if str, ok := v.(string); ok && str == "" {
		return 0, nil
	}
	n, err := setting.TypeFloat.Normalize(v)
	if err != nil {
		return 0, err
	}
	return n.(float64), nil
}

// Group returns every setting of a category keyed by name. An unknown category
// yields an empty map.
func (s *SettingsService) Group(ctx context.Context, categoryName string) (map[string]any, error) {
	if g, ok := s.groups[categoryName]; ok {
		s.observe(scopeGroup, tierMemo)
		return maps.Clone(g), nil
	}

	if g, ok := s.cacheGetGroup(ctx, categoryName); ok {
		s.observe(scopeGroup, tierCache)
		s.groups[categoryName] = g
		return maps.Clone(g), nil
	}

	res, err, _ := sf.Do("group:"+categoryName, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		list, err := s.repo.FindAllInGroup(ctx, categoryName)
		if err != nil {
			return nil, err
		}
		values := make(map[string]any, len(list))
		payload := make(map[string]cachedValue, len(list))
		for _, st := range list {
			values[st.Name] = memoValue(st.Value)
			if cv, err := newCachedValue(st); err == nil {
				payload[st.Name] = cv
			}
		}
		s.cacheSet(ctx, cacheGroupKey(categoryName), payload)
		return values, nil
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"category": categoryName}).WithError(err).Error("failed to load settings group from store")
		}
		return nil, fmt.Errorf("failed to load settings group %q: %w", categoryName, err)
	}
	values, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	s.observe(scopeGroup, tierStore)
	s.groups[categoryName] = maps.Clone(values)
	return maps.Clone(values), nil
}

// UpdateValue sets the value of an existing uncategorized setting.
func (s *SettingsService) UpdateValue(ctx context.Context, name string, value any) error {
	return s.update(ctx, nil, name, value)
}

// UpdateGroupedValue sets the value of an existing setting inside a category,
// creating the category when it does not exist yet.
func (s *SettingsService) UpdateGroupedValue(ctx context.Context, categoryName, name string, value any) error {
	category, err := s.EnsureCategory(ctx, categoryName)
	if err != nil {
		return err
	}
	return s.update(ctx, category, name, value)
}

func (s *SettingsService) update(ctx context.Context, category *setting.Category, name string, value any) error {
	var categoryID *uuid.UUID
	if category != nil {
		id := category.ID
		categoryID = &id
	}
	st, ok, err := s.repo.FindByCategoryAndName(ctx, categoryID, name)
	if err != nil {
		return fmt.Errorf("failed to load setting %q: %w", name, err)
	}
	if !ok {
		if category != nil {
			return fmt.Errorf("%w: %s in category %s", setting.ErrSettingNotFound, name, category.Name)
		}
		return fmt.Errorf("%w: %s", setting.ErrSettingNotFound, name)
	}
	if err := st.SetValue(value); err != nil {
		return fmt.Errorf("setting %q: %w", name, err)
	}
	if err := s.repo.Save(ctx, st); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"name": name, "category": st.CategoryName()}).WithError(err).Error("failed to update setting in repo")
		}
		return fmt.Errorf("failed to update setting %q: %w", name, err)
	}
	s.afterWrite(ctx, category, name, st.Value)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"name": name, "category": st.CategoryName()}).Info("setting updated")
	}
	return nil
}

// Create persists a new setting, or one setting per configured locale when
// req.MultiLanguage is set. Locales whose setting already exists are skipped
// and not returned.
func (s *SettingsService) Create(ctx context.Context, req *setting.CreateSettingRequest) ([]*setting.Setting, error) {
	return s.create(ctx, req, "")
}

func (s *SettingsService) create(ctx context.Context, req *setting.CreateSettingRequest, lang string) ([]*setting.Setting, error) {
	if _, err := setting.ParseValueType(string(req.Type)); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: setting name is required", setting.ErrInvalidValue)
	}
	value, err := req.Type.Normalize(req.Value)
	if err != nil {
		return nil, fmt.Errorf("setting %q: %w", req.Name, err)
	}
	category, err := s.EnsureCategory(ctx, req.Category)
	if err != nil {
		return nil, err
	}

	if !req.MultiLanguage {
		st := newSetting(category, req.Name, req.Type, value, req.Comment)
		if err := s.save(ctx, st); err != nil {
			return nil, err
		}
		s.afterWrite(ctx, category, st.Name, value)
		return []*setting.Setting{st}, nil
	}

	var created []*setting.Setting
	for _, locale := range s.localeList(lang) {
		key := localizedName(req.Name, locale)
		if _, ok := s.settings[key]; ok {
			continue
		}
		_, exists, err := s.load(ctx, key)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		code := strings.ToUpper(locale)
		comment := code
		if req.Comment != "" {
			comment = req.Comment + " (" + code + ")"
		}
		st := newSetting(category, key, req.Type, value, comment)
		if err := s.save(ctx, st); err != nil {
			return created, err
		}
		s.afterWrite(ctx, category, key, value)
		created = append(created, st)
	}
	return created, nil
}

// localeList returns the configured locales, plus lang when it is not among them.
func (s *SettingsService) localeList(lang string) []string {
	var locales []string
	if s.locales != nil {
		locales = s.locales.Locales()
	}
	if lang == "" {
		return locales
	}
	for _, l := range locales {
		if strings.EqualFold(l, lang) {
			return locales
		}
	}
	return append(append([]string(nil), locales...), lang)
}

func newSetting(category *setting.Category, name string, t setting.ValueType, value any, comment string) *setting.Setting {
	now := time.Now()
	return &setting.Setting{
		ID:        uuid.New(),
		Name:      name,
		Type:      t,
		Value:     value,
		Comment:   comment,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *SettingsService) save(ctx context.Context, st *setting.Setting) error {
	if err := s.repo.Save(ctx, st); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"name": st.Name, "category": st.CategoryName()}).WithError(err).Error("failed to create setting in repo")
		}
		return fmt.Errorf("failed to create setting %q: %w", st.Name, err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"name": st.Name, "id": st.ID, "type": st.Type}).Info("setting created")
	}
	return nil
}

// afterWrite refreshes the memo slots of a persisted setting and drops its cache keys.
// A group slot is only patched when the whole group is already memoized.
func (s *SettingsService) afterWrite(ctx context.Context, category *setting.Category, name string, value any) {
	v := memoValue(value)
	if category == nil {
		s.settings[name] = v
		s.ClearCache(ctx, name)
		return
	}
	if g, ok := s.groups[category.Name]; ok {
		g[name] = v
	}
	if _, ok := s.settings[name]; ok {
		s.settings[name] = v
	}
	s.ClearGroupCache(ctx, category.Name)
	s.ClearCache(ctx, name)
}

// CreateGroup creates a category, or updates the comment of an existing one.
func (s *SettingsService) CreateGroup(ctx context.Context, req *setting.CreateCategoryRequest) (*setting.Category, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", setting.ErrInvalidValue)
	}
	category, err := s.EnsureCategory(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if req.Comment != "" && category.Comment != req.Comment {
		category.Comment = req.Comment
		if err := s.categories.Save(ctx, category); err != nil {
			return nil, fmt.Errorf("failed to save category %q: %w", req.Name, err)
		}
	}
	s.ClearGroupCache(ctx, category.Name)
	return category, nil
}

// EnsureCategory returns the named category, creating it when absent. An empty
// name means uncategorized and yields nil. A creation that loses a uniqueness
// race is retried once as a read.
func (s *SettingsService) EnsureCategory(ctx context.Context, name string) (*setting.Category, error) {
	if name == "" {
		return nil, nil
	}
	c, ok, err := s.categories.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load category %q: %w", name, err)
	}
	if ok {
		return c, nil
	}

	c = &setting.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	if err := s.categories.Save(ctx, c); err != nil {
		if errors.Is(err, setting.ErrDuplicate) {
			existing, ok, ferr := s.categories.FindByName(ctx, name)
			if ferr == nil && ok {
				return existing, nil
			}
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"category": name}).WithError(err).Error("failed to create category in repo")
		}
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"category": name, "id": c.ID}).Info("category created")
	}
	return c, nil
}

// ClearCache drops the shared cache entry of a setting. It reports false when
// no cache is configured or the delete failed. The memo is left untouched.
func (s *SettingsService) ClearCache(ctx context.Context, name string) bool {
	return s.invalidate(ctx, scopeSetting, cacheKey(name))
}

// ClearGroupCache drops the shared cache entry of a category.
func (s *SettingsService) ClearGroupCache(ctx context.Context, categoryName string) bool {
	return s.invalidate(ctx, scopeGroup, cacheGroupKey(categoryName))
}

func (s *SettingsService) InvalidateLocal(name string) {
	delete(s.settings, name)
}

func (s *SettingsService) InvalidateLocalGroup(categoryName string) {
	delete(s.groups, categoryName)
}

func (s *SettingsService) invalidate(ctx context.Context, scope, key string) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Delete(ctx, key)
	if err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("failed to delete cache key")
	}
	if s.metrics != nil {
		s.metrics.CacheInvalidated(scope, err == nil)
	}
	return err == nil
}

func (s *SettingsService) cacheGetValue(ctx context.Context, key string) (any, bool) {
	var cv cachedValue
	if !s.cacheGet(ctx, cacheKey(key), &cv) {
		return nil, false
	}
	v, err := cv.decode()
	if err != nil {
		return nil, false
	}
	return memoValue(v), true
}

func (s *SettingsService) cacheGetGroup(ctx context.Context, categoryName string) (map[string]any, bool) {
	var payload map[string]cachedValue
	if !s.cacheGet(ctx, cacheGroupKey(categoryName), &payload) {
		return nil, false
	}
	g := make(map[string]any, len(payload))
	for name, cv := range payload {
		v, err := cv.decode()
		if err != nil {
			return nil, false
		}
		g[name] = memoValue(v)
	}
	return g, true
}

func (s *SettingsService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("cache read failed; falling back to store")
		}
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("discarding undecodable cache entry")
		}
		return false
	}
	return true
}

func (s *SettingsService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("failed to populate cache")
	}
}

func (s *SettingsService) observe(scope, tier string) {
	if s.metrics != nil {
		s.metrics.LookupServed(scope, tier)
	}
}

var _ ports.SettingsService = (*SettingsService)(nil)
