package record

import (
	"context"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
)

// Repository owns the durable record list. Every method is a whole-list
// read-modify-write; callers serialize writers.
type Repository interface {
	Load(ctx context.Context) ([]model.Record, error)
	Append(ctx context.Context, rec *model.Record) error
	ReplaceAll(ctx context.Context, records []model.Record) error
	RemoveWhere(ctx context.Context, pred func(model.Record) bool) (int, error)

	// Forward outbox: ids of records whose upstream delivery is still owed.
	PendingForwards(ctx context.Context) ([]string, error)
	SavePendingForwards(ctx context.Context, ids []string) error
}
