package store

import (
	"context"

	"calendario/internal/core"
)

// MonthFilter scopes an activity listing to a single month.
// Month is 1-based; the HTTP layer owns the client's 0-indexed convention.
type MonthFilter struct {
	Month int
	Year  int
}

// Ports for store implementations.
type (
	ActivityLister interface {
		// ListActivities returns activities ordered by date ascending.
		// A nil filter returns everything.
		ListActivities(ctx context.Context, filter *MonthFilter) ([]core.Activity, error)
	}

	ActivityGetter interface {
		GetActivity(ctx context.Context, id string) (core.Activity, error)
	}

	ActivityWriter interface {
		// CreateActivity assigns a fresh id and persists the activity.
		CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error)
		UpdateActivity(ctx context.Context, id string, a core.Activity) (core.Activity, error)
		DeleteActivity(ctx context.Context, id string) error
	}

	TypeLister interface {
		// ListTypes returns activity types in creation order.
		ListTypes(ctx context.Context) ([]core.ActivityType, error)
	}

	TypeWriter interface {
		CreateType(ctx context.Context, t core.ActivityType) (core.ActivityType, error)
		UpdateType(ctx context.Context, id string, t core.ActivityType) (core.ActivityType, error)
		// DeleteType rejects removing the last type and reassigns
		// referencing activities to the remaining type with the
		// smallest id before deleting the row.
		DeleteType(ctx context.Context, id string) error
	}
)

// Store is the full persistence boundary consumed by the service layer.
type Store interface {
	ActivityLister
	ActivityGetter
	ActivityWriter
	TypeLister
	TypeWriter
}
