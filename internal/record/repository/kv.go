package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/google/uuid"
)

// KV is the durable key-value substrate. Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KVRepository keeps the whole record list as one JSON array under a single
// key, the way the scanner app always has.
type KVRepository struct {
	kv         KV
	recordsKey string
	outboxKey  string
	now        func() time.Time
}

func NewKVRepository(kv KV, recordsKey, outboxKey string) *KVRepository {
	return &KVRepository{
		kv:         kv,
		recordsKey: recordsKey,
		outboxKey:  outboxKey,
		now:        time.Now,
	}
}

var _ record.Repository = (*KVRepository)(nil)

// IdentityOf is the record's natural key. The creation time separates
// legacy entries that share asset code and serial.
func IdentityOf(r model.Record) string {
	return r.AssetCode + "|" + r.SerialNumber + "|" + r.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func (r *KVRepository) Load(ctx context.Context) ([]model.Record, error) {
	data, err := r.kv.Get(ctx, r.recordsKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load records: %v", record.ErrStoreIO, err)
	}
	if len(data) == 0 {
		return []model.Record{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: decode records: %v", record.ErrStoreIO, err)
	}

	records := make([]model.Record, 0, len(items))
	for i, item := range items {
		rec, err := Migrate(item)
		if err != nil {
			return nil, fmt.Errorf("%w: decode record %d: %v", record.ErrStoreIO, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *KVRepository) Append(ctx context.Context, rec *model.Record) error {
	records, err := r.Load(ctx)
	if err != nil {
		return err
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.SchemaVersion = model.SchemaVersion

	records = append(records, *rec)
	return r.save(ctx, records)
}

func (r *KVRepository) ReplaceAll(ctx context.Context, records []model.Record) error {
	return r.save(ctx, records)
}

func (r *KVRepository) RemoveWhere(ctx context.Context, pred func(model.Record) bool) (int, error) {
	records, err := r.Load(ctx)
	if err != nil {
		return 0, err
	}

	kept := records[:0]
	removed := 0
	for _, rec := range records {
		if pred(rec) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.save(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *KVRepository) PendingForwards(ctx context.Context) ([]string, error) {
	data, err := r.kv.Get(ctx, r.outboxKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load outbox: %v", record.ErrStoreIO, err)
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: decode outbox: %v", record.ErrStoreIO, err)
	}
	return ids, nil
}

func (r *KVRepository) SavePendingForwards(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, r.outboxKey, data); err != nil {
		return fmt.Errorf("%w: save outbox: %v", record.ErrStoreIO, err)
	}
	return nil
}

func (r *KVRepository) save(ctx context.Context, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, r.recordsKey, data); err != nil {
		return fmt.Errorf("%w: save records: %v", record.ErrStoreIO, err)
	}
	return nil
}
