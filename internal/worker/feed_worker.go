// Package worker keeps the published calendar artifacts in sync with
// the store by consuming change events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"calendario/internal/amqp"
	"calendario/internal/core"
	"calendario/internal/export"
	"calendario/internal/store"
)

// feedStore is the slice of the store the worker reads from.
type feedStore interface {
	store.ActivityLister
	store.ActivityGetter
	store.TypeLister
}

// Mirror pushes individual activity changes to a remote calendar.
type Mirror interface {
	UpsertEvent(ctx context.Context, a core.Activity, typeLabel string) error
	DeleteEvent(ctx context.Context, activityID string) error
}

// FeedWorker rebuilds the ICS feed file on every change event and
// forwards activity mutations to an optional remote mirror.
type FeedWorker struct {
	store    feedStore
	mirror   Mirror
	feedPath string
}

func NewFeedWorker(st feedStore, mirror Mirror, feedPath string) *FeedWorker {
	return &FeedWorker{
		store:    st,
		mirror:   mirror,
		feedPath: feedPath,
	}
}

// RebuildFeed regenerates the ICS feed from the full store contents.
// The file is written atomically so feed readers never see a partial
// calendar.
func (w *FeedWorker) RebuildFeed(ctx context.Context) error {
	activities, err := w.store.ListActivities(ctx, nil)
	if err != nil {
		return fmt.Errorf("list activities: %w", err)
	}
	types, err := w.store.ListTypes(ctx)
	if err != nil {
		return fmt.Errorf("list types: %w", err)
	}

	payload := export.Render(activities, types)

	dir := filepath.Dir(w.feedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "feed-*.ics")
	if err != nil {
		return fmt.Errorf("create temp feed: %w", err)
	}
	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.feedPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish feed: %w", err)
	}

	slog.InfoContext(ctx, "Feed rebuilt", "path", w.feedPath, "activities", len(activities))
	return nil
}

// HandleChangeEvent processes a single change event. The feed is always
// rebuilt; activity events additionally propagate to the mirror when one
// is configured.
func (w *FeedWorker) HandleChangeEvent(ctx context.Context, ev *amqp.ChangeEvent) error {
	if err := w.RebuildFeed(ctx); err != nil {
		return err
	}

	if w.mirror == nil || ev.Entity != amqp.EntityActivity {
		return nil
	}

	switch ev.Op {
	case amqp.OpDeleted:
		return w.mirror.DeleteEvent(ctx, ev.ID)
	case amqp.OpCreated, amqp.OpUpdated:
		a, err := w.store.GetActivity(ctx, ev.ID)
		if err != nil {
			// The row can be gone by the time we consume the event.
			slog.WarnContext(ctx, "Activity vanished before mirroring", "id", ev.ID, "error", err)
			return nil
		}
		return w.mirror.UpsertEvent(ctx, a, w.typeLabel(ctx, a.TypeID))
	default:
		slog.WarnContext(ctx, "Unknown change op", "op", ev.Op, "entity", ev.Entity, "id", ev.ID)
		return nil
	}
}

func (w *FeedWorker) typeLabel(ctx context.Context, typeID string) string {
	types, err := w.store.ListTypes(ctx)
	if err != nil {
		return ""
	}
	for _, t := range types {
		if t.ID == typeID {
			return t.Label
		}
	}
	return ""
}

// Run rebuilds the feed periodically as a backstop for missed events.
// It blocks until the context is cancelled.
func (w *FeedWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.RebuildFeed(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial feed rebuild failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RebuildFeed(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic feed rebuild failed", "error", err)
			}
		}
	}
}
