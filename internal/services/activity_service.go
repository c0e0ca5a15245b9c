package services

import (
	"context"
	"fmt"
	"log/slog"

	"calendario/internal/amqp"
	"calendario/internal/core"
	"calendario/internal/store"
)

// ActivityService decorates a store with change-event publishing.
// Publishing is best-effort: a failed publish never fails the mutation,
// since the row is already persisted locally.
type ActivityService struct {
	store      store.Store
	amqpClient *amqp.Client
}

var _ store.Store = (*ActivityService)(nil)

func NewActivityService(st store.Store, amqpClient *amqp.Client) *ActivityService {
	return &ActivityService{
		store:      st,
		amqpClient: amqpClient,
	}
}

func (s *ActivityService) ListActivities(ctx context.Context, filter *store.MonthFilter) ([]core.Activity, error) {
	return s.store.ListActivities(ctx, filter)
}

func (s *ActivityService) GetActivity(ctx context.Context, id string) (core.Activity, error) {
	return s.store.GetActivity(ctx, id)
}

func (s *ActivityService) CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	created, err := s.store.CreateActivity(ctx, a)
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}
	s.publish(ctx, amqp.EntityActivity, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *ActivityService) UpdateActivity(ctx context.Context, id string, a core.Activity) (core.Activity, error) {
	updated, err := s.store.UpdateActivity(ctx, id, a)
	if err != nil {
		return core.Activity{}, err
	}
	s.publish(ctx, amqp.EntityActivity, amqp.OpUpdated, id)
	return updated, nil
}

func (s *ActivityService) DeleteActivity(ctx context.Context, id string) error {
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.EntityActivity, amqp.OpDeleted, id)
	return nil
}

func (s *ActivityService) ListTypes(ctx context.Context) ([]core.ActivityType, error) {
	return s.store.ListTypes(ctx)
}

func (s *ActivityService) CreateType(ctx context.Context, t core.ActivityType) (core.ActivityType, error) {
	created, err := s.store.CreateType(ctx, t)
	if err != nil {
		return core.ActivityType{}, err
	}
	s.publish(ctx, amqp.EntityType, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *ActivityService) UpdateType(ctx context.Context, id string, t core.ActivityType) (core.ActivityType, error) {
	updated, err := s.store.UpdateType(ctx, id, t)
	if err != nil {
		return core.ActivityType{}, err
	}
	s.publish(ctx, amqp.EntityType, amqp.OpUpdated, id)
	return updated, nil
}

func (s *ActivityService) DeleteType(ctx context.Context, id string) error {
	if err := s.store.DeleteType(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.EntityType, amqp.OpDeleted, id)
	return nil
}

func (s *ActivityService) publish(ctx context.Context, entity, op, id string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishChange(ctx, amqp.NewChangeEvent(entity, op, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", entity, "op", op, "id", id, "error", err)
	}
}

// Close closes the underlying store and AMQP connection.
func (s *ActivityService) Close() error {
	var errs []error

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close activity service: %v", errs)
	}

	return nil
}
