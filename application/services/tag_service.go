package services

import (
	"context"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"
	"todo-backend/pkg/observability"

	"go.uber.org/zap"
)

// TagService owns tag records. The todos list of a tag is only changed
// through TodoService.AddTag and RemoveTag.
type TagService struct {
	store   ports.Store
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewTagService creates a new tag service. metrics may be nil.
func NewTagService(store ports.Store, metrics *observability.Collector, logger *zap.Logger) *TagService {
	return &TagService{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *TagService) ListTags(ctx context.Context) ([]*entities.Tag, error) {
	tags, err := s.store.Tags().List(ctx)
	if err != nil {
		s.logger.Error("Failed to list tags", zap.Error(err))
		return nil, err
	}
	if tags == nil {
		tags = []*entities.Tag{}
	}
	return tags, nil
}

func (s *TagService) CreateTag(ctx context.Context, name string) (*entities.Tag, error) {
	tag, err := entities.NewTag(name)
	if err != nil {
		return nil, err
	}

	if err := s.store.Tags().Create(ctx, tag); err != nil {
		s.logger.Error("Failed to create tag", zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TagsCreated.Inc()
	}
	s.logger.Debug("Tag created", zap.String("tagID", tag.ID))
	return tag, nil
}

func (s *TagService) GetTag(ctx context.Context, id string) (*entities.Tag, error) {
	return s.store.Tags().GetByID(ctx, id)
}

// UpdateTag merges the fields present in patch into the stored tag.
func (s *TagService) UpdateTag(ctx context.Context, id string, patch entities.TagPatch) (*entities.Tag, error) {
	tag, err := s.store.Tags().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tag.ApplyPatch(patch); err != nil {
		return nil, err
	}

	if err := s.store.Tags().Update(ctx, tag); err != nil {
		s.logger.Error("Failed to update tag", zap.String("tagID", id), zap.Error(err))
		return nil, err
	}
	return tag, nil
}
