package services

import (
	"context"
	"fmt"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SettingsAdminService edits settings outside the read path, the way an admin
// console does, and clears the shared cache after every persisted change.
type SettingsAdminService struct {
	repo       ports.SettingRepository
	categories ports.CategoryRepository
	settings   ports.SettingsServiceFactory
	logger     *logrus.Logger
}

func NewSettingsAdminService(repo ports.SettingRepository, categories ports.CategoryRepository, settings ports.SettingsServiceFactory, logger *logrus.Logger) ports.SettingsAdminService {
	return &SettingsAdminService{
		repo:       repo,
		categories: categories,
		settings:   settings,
		logger:     logger,
	}
}

func (s *SettingsAdminService) ListSettings(ctx context.Context, limit, offset int) ([]*setting.Setting, int, error) {
	list, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return list, count, nil
}

func (s *SettingsAdminService) GetSetting(ctx context.Context, id uuid.UUID) (*setting.Setting, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *SettingsAdminService) SaveSetting(ctx context.Context, id uuid.UUID, req *setting.SaveSettingRequest) (*setting.Setting, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName, oldCategory := st.Name, st.CategoryName()

	svc := s.settings.New()
	if err := s.applyUpdates(ctx, svc, st, req); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, st); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"id": id, "name": st.Name}).WithError(err).Error("failed to save setting in repo")
		}
		return nil, fmt.Errorf("failed to save setting: %w", err)
	}

	s.clear(ctx, svc, oldName, oldCategory)
	if oldName != st.Name || oldCategory != st.CategoryName() {
		s.clear(ctx, svc, st.Name, st.CategoryName())
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"id": id, "name": st.Name}).Info("setting saved")
	}
	return st, nil
}

// applyUpdates applies the non-nil fields of the request and re-validates the
// value against the resulting type.
func (s *SettingsAdminService) applyUpdates(ctx context.Context, svc ports.SettingsService, st *setting.Setting, req *setting.SaveSettingRequest) error {
	if req.Name != nil {
		if *req.Name == "" {
			return fmt.Errorf("%w: setting name is required", setting.ErrInvalidValue)
		}
		st.Name = *req.Name
	}
	if req.Type != nil {
		t, err := setting.ParseValueType(string(*req.Type))
		if err != nil {
			return err
		}
		st.Type = t
	}
	if req.Comment != nil {
		st.Comment = *req.Comment
	}
	if req.Category != nil {
		category, err := svc.EnsureCategory(ctx, *req.Category)
		if err != nil {
			return err
		}
		st.Category = category
	}
	value := st.Value
	if req.Value != nil {
		value = *req.Value
	}
	if str, ok := value.(string); ok && str == "" {
		value = nil
	}
	if err := st.SetValue(value); err != nil {
		return fmt.Errorf("setting %q: %w", st.Name, err)
	}
	return nil
}

func (s *SettingsAdminService) DeleteSetting(ctx context.Context, id uuid.UUID) error {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.clear(ctx, s.settings.New(), st.Name, st.CategoryName())
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"id": id, "name": st.Name}).Info("setting deleted")
	}
	return nil
}

func (s *SettingsAdminService) ListCategories(ctx context.Context) ([]*setting.Category, error) {
	return s.categories.List(ctx)
}

// DeleteCategory removes a category; its settings become uncategorized.
func (s *SettingsAdminService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	members, err := s.repo.FindAllInGroup(ctx, c.Name)
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	svc := s.settings.New()
	svc.ClearGroupCache(ctx, c.Name)
	for _, st := range members {
		svc.ClearCache(ctx, st.Name)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"id": id, "category": c.Name, "settings": len(members)}).Info("category deleted")
	}
	return nil
}

func (s *SettingsAdminService) clear(ctx context.Context, svc ports.SettingsService, name, category string) {
	svc.ClearCache(ctx, name)
	if category != "" {
		svc.ClearGroupCache(ctx, category)
	}
}
