package mocks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/google/uuid"
)

func cloneSetting(s *setting.Setting) *setting.Setting {
	c := *s
	if s.Category != nil {
		cat := *s.Category
		c.Category = &cat
	}
	return &c
}

func sameCategory(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SettingRepositoryMock is an in-memory ports.SettingRepository. The Fn fields
// override individual methods; call counters are kept for every finder.
type SettingRepositoryMock struct {
	FindByNameFn     func(ctx context.Context, name string) (*setting.Setting, bool, error)
	FindAllInGroupFn func(ctx context.Context, categoryName string) ([]*setting.Setting, error)
	SaveFn           func(ctx context.Context, s *setting.Setting) error

	mu    sync.Mutex
	items map[uuid.UUID]*setting.Setting
	calls map[string]int
}

func NewSettingRepositoryMock() *SettingRepositoryMock {
	return &SettingRepositoryMock{items: map[uuid.UUID]*setting.Setting{}, calls: map[string]int{}}
}

func (m *SettingRepositoryMock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
}

// Calls reports how often method was invoked.
func (m *SettingRepositoryMock) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Seed stores s directly, bypassing Save and its hooks.
func (m *SettingRepositoryMock) Seed(s *setting.Setting) *setting.Setting {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[uuid.UUID]*setting.Setting{}
	}
	m.items[s.ID] = cloneSetting(s)
	return s
}

// All returns copies of every stored setting.
func (m *SettingRepositoryMock) All() []*setting.Setting {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*setting.Setting, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, cloneSetting(s))
	}
	slices.SortFunc(out, func(a, b *setting.Setting) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func (m *SettingRepositoryMock) FindByName(ctx context.Context, name string) (*setting.Setting, bool, error) {
	m.record("FindByName")
	if m.FindByNameFn != nil {
		return m.FindByNameFn(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *setting.Setting
	for _, s := range m.items {
		if s.Name != name {
			continue
		}
		if best == nil || (s.Category == nil && best.Category != nil) {
			best = s
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return cloneSetting(best), true, nil
}

func (m *SettingRepositoryMock) FindByCategoryAndName(_ context.Context, categoryID *uuid.UUID, name string) (*setting.Setting, bool, error) {
	m.record("FindByCategoryAndName")
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items {
		if s.Name == name && sameCategory(s.CategoryID(), categoryID) {
			return cloneSetting(s), true, nil
		}
	}
	return nil, false, nil
}

func (m *SettingRepositoryMock) FindAllInGroup(ctx context.Context, categoryName string) ([]*setting.Setting, error) {
	m.record("FindAllInGroup")
	if m.FindAllInGroupFn != nil {
		return m.FindAllInGroupFn(ctx, categoryName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*setting.Setting
	for _, s := range m.items {
		if s.CategoryName() == categoryName && s.Category != nil {
			out = append(out, cloneSetting(s))
		}
	}
	slices.SortFunc(out, func(a, b *setting.Setting) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// Save upserts by ID and reports setting.ErrDuplicate for a second name in the same category.
func (m *SettingRepositoryMock) Save(ctx context.Context, s *setting.Setting) error {
	m.record("Save")
	if m.SaveFn != nil {
		return m.SaveFn(ctx, s)
	}
	if _, err := s.Type.Encode(s.Value); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[uuid.UUID]*setting.Setting{}
	}
	for id, other := range m.items {
		if id != s.ID && other.Name == s.Name && sameCategory(other.CategoryID(), s.CategoryID()) {
			return fmt.Errorf("%w: %s", setting.ErrDuplicate, s.Name)
		}
	}
	m.items[s.ID] = cloneSetting(s)
	return nil
}

func (m *SettingRepositoryMock) GetByID(_ context.Context, id uuid.UUID) (*setting.Setting, error) {
	m.record("GetByID")
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", setting.ErrSettingNotFound, id)
	}
	return cloneSetting(s), nil
}

func (m *SettingRepositoryMock) Delete(_ context.Context, id uuid.UUID) error {
	m.record("Delete")
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%w: id %s", setting.ErrSettingNotFound, id)
	}
	delete(m.items, id)
	return nil
}

func (m *SettingRepositoryMock) List(_ context.Context, limit, offset int) ([]*setting.Setting, error) {
	all := m.All()
	if offset >= len(all) {
		return []*setting.Setting{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *SettingRepositoryMock) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

// Detach clears the category of every setting in categoryID, the way the
// foreign key does when a category row is deleted.
func (m *SettingRepositoryMock) Detach(categoryID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items {
		if s.Category != nil && s.Category.ID == categoryID {
			s.Category = nil
		}
	}
}

// CategoryRepositoryMock is an in-memory ports.CategoryRepository.
type CategoryRepositoryMock struct {
	FindByNameFn func(ctx context.Context, name string) (*setting.Category, bool, error)
	SaveFn       func(ctx context.Context, c *setting.Category) error
	// OnDelete runs after a category is removed.
	OnDelete func(id uuid.UUID)

	mu    sync.Mutex
	items map[uuid.UUID]*setting.Category
	calls map[string]int
}

func NewCategoryRepositoryMock() *CategoryRepositoryMock {
	return &CategoryRepositoryMock{items: map[uuid.UUID]*setting.Category{}, calls: map[string]int{}}
}

func (m *CategoryRepositoryMock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
}

func (m *CategoryRepositoryMock) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Seed stores a category named name and returns it.
func (m *CategoryRepositoryMock) Seed(name string) *setting.Category {
	c := &setting.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[uuid.UUID]*setting.Category{}
	}
	cp := *c
	m.items[c.ID] = &cp
	return c
}

func (m *CategoryRepositoryMock) FindByName(ctx context.Context, name string) (*setting.Category, bool, error) {
	m.record("FindByName")
	if m.FindByNameFn != nil {
		return m.FindByNameFn(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.Name == name {
			cp := *c
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (m *CategoryRepositoryMock) Save(ctx context.Context, c *setting.Category) error {
	m.record("Save")
	if m.SaveFn != nil {
		return m.SaveFn(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[uuid.UUID]*setting.Category{}
	}
	for id, other := range m.items {
		if id != c.ID && other.Name == c.Name {
			return fmt.Errorf("%w: category %s", setting.ErrDuplicate, c.Name)
		}
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *CategoryRepositoryMock) GetByID(_ context.Context, id uuid.UUID) (*setting.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", setting.ErrCategoryNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (m *CategoryRepositoryMock) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	if _, ok := m.items[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: id %s", setting.ErrCategoryNotFound, id)
	}
	delete(m.items, id)
	m.mu.Unlock()
	if m.OnDelete != nil {
		m.OnDelete(id)
	}
	return nil
}

func (m *CategoryRepositoryMock) List(_ context.Context) ([]*setting.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*setting.Category, 0, len(m.items))
	for _, c := range m.items {
		cp := *c
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *setting.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// CacheMock is an in-memory ports.Cache that counts operations per key.
type CacheMock struct {
	GetErr    error
	SetErr    error
	DeleteErr error

	mu      sync.Mutex
	data    map[string][]byte
	gets    map[string]int
	sets    map[string]int
	deletes map[string]int
}

func NewCacheMock() *CacheMock {
	return &CacheMock{
		data:    map[string][]byte{},
		gets:    map[string]int{},
		sets:    map[string]int{},
		deletes: map[string]int{},
	}
}

func (m *CacheMock) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets[key]++
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (m *CacheMock) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[key]++
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = append([]byte{}, value...)
	return nil
}

func (m *CacheMock) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes[key]++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.data, key)
	return nil
}

// Has reports whether key currently holds a value.
func (m *CacheMock) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// Raw returns the stored bytes of key.
func (m *CacheMock) Raw(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// Put stores value under key without counting a Set.
func (m *CacheMock) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte{}, value...)
}

func (m *CacheMock) Gets(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[key]
}

func (m *CacheMock) Sets(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets[key]
}

func (m *CacheMock) Deletes(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes[key]
}

// MetricsMock records settings observations as "scope/tier" and "scope/ok" strings.
type MetricsMock struct {
	mu            sync.Mutex
	Lookups       []string
	Invalidations []string
}

func (m *MetricsMock) LookupServed(scope, tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups = append(m.Lookups, scope+"/"+tier)
}

func (m *MetricsMock) CacheInvalidated(scope string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidations = append(m.Invalidations, fmt.Sprintf("%s/%t", scope, ok))
}

// StaticLocales is a fixed ports.LocaleProvider.
type StaticLocales []string

func (l StaticLocales) Locales() []string { return append([]string(nil), l...) }

var (
	_ ports.SettingRepository  = (*SettingRepositoryMock)(nil)
	_ ports.CategoryRepository = (*CategoryRepositoryMock)(nil)
	_ ports.Cache              = (*CacheMock)(nil)
	_ ports.SettingsMetrics    = (*MetricsMock)(nil)
	_ ports.LocaleProvider     = StaticLocales(nil)
)
