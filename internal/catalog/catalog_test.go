package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{name: "object", body: `{"name":"Desk"}`, want: `{"name":"Desk"}`},
		{name: "array", body: ` [{"name":"Desk"}] `, want: `[{"name":"Desk"}]`},
		{name: "string encoded object", body: `"{\"name\":\"Desk\"}"`, want: `{"name":"Desk"}`},
		{name: "string encoded array", body: `"[{\"name\":\"Desk\"}]"`, want: `[{"name":"Desk"}]`},
		{name: "double string encoded", body: `"\"{\\\"name\\\":\\\"Desk\\\"}\""`, wantErr: ErrMalformedResponse},
		{name: "plain text", body: `not json`, wantErr: ErrMalformedResponse},
		{name: "string of text", body: `"hello"`, wantErr: ErrMalformedResponse},
		{name: "empty", body: ``, wantErr: ErrEmptyResponse},
		{name: "empty string", body: `""`, wantErr: ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unwrap([]byte(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestDecodeEntry(t *testing.T) {
	e, err := DecodeEntry([]byte(`[{"name":"Desk","unt":"pcs","lord":"Bold","dans":"1201","une":1500.50,"ognoo":"2024.03.01"},{"name":"other"}]`))
	require.NoError(t, err)
	assert.Equal(t, Entry{
		Name:      "Desk",
		Unit:      "pcs",
		Custodian: "Bold",
		Account:   "1201",
		Price:     "1500.5",
		Date:      "2024.03.01",
	}, e)

	_, err = DecodeEntry([]byte(`[]`))
	require.ErrorIs(t, err, ErrEmptyResponse)

	_, err = DecodeEntry([]byte(`null`))
	require.ErrorIs(t, err, ErrEmptyResponse)

	e, err = DecodeEntry([]byte(`"{\"name\":\"Chair\"}"`))
	require.NoError(t, err)
	assert.Equal(t, "Chair", e.Name)
	assert.Empty(t, e.Price)
}

func candidate() model.Record {
	return model.Record{
		IssuerID:         "L1",
		AssetCode:        "CODE7",
		SerialNumber:     "SN7",
		Account:          "ACC1",
		UnitPrice:        "100",
		Date:             "2025-01-15",
		OrganizationCode: "ORG1",
		RawPayload:       "L1^?ACC1^?CODE7^?100^?2025-01-15^?ORG1^?SN7",
		DeviceID:         "dev-1",
		ReportingYear:    2025,
		ReportingMonth:   1,
		Completeness:     model.TagEnrichmentPending,
	}
}

type fetchFunc func(ctx context.Context, key string) (Entry, error)

func (f fetchFunc) Lookup(ctx context.Context, key string) (Entry, error) { return f(ctx, key) }

func TestEnrichOfflineSkipsLookup(t *testing.T) {
	called := false
	e := NewEnricher(fetchFunc(func(ctx context.Context, key string) (Entry, error) {
		called = true
		return Entry{}, nil
	}), logger.NewNop())

	got := e.Enrich(context.Background(), candidate(), false)

	assert.False(t, called)
	assert.Equal(t, model.TagEnrichmentFailed, got.Completeness)
	assert.Equal(t, model.OfflineAssetName, got.AssetName)
}

func TestEnrichLookupFailureDegrades(t *testing.T) {
	e := NewEnricher(fetchFunc(func(ctx context.Context, key string) (Entry, error) {
		return Entry{}, errors.New("connection refused")
	}), logger.NewNop())

	got := e.Enrich(context.Background(), candidate(), true)

	assert.Equal(t, model.TagEnrichmentFailed, got.Completeness)
	assert.Equal(t, model.OfflineAssetName, got.AssetName)
	assert.Equal(t, "100", got.UnitPrice)
}

func TestEnrichMergesWithFallback(t *testing.T) {
	var gotKey string
	e := NewEnricher(fetchFunc(func(ctx context.Context, key string) (Entry, error) {
		gotKey = key
		return Entry{Name: "Desk", Unit: "pcs", Custodian: "Bold", Date: "20240301"}, nil
	}), logger.NewNop())

	got := e.Enrich(context.Background(), candidate(), true)

	assert.Equal(t, "L1^?ACC1^?CODE7^?100^?2025-01-15^?ORG1^?SN7^?2025^?1^?dev-1", gotKey)
	assert.Equal(t, model.TagComplete, got.Completeness)
	assert.Equal(t, "Desk", got.AssetName)
	assert.Equal(t, "pcs", got.UnitType)
	assert.Equal(t, "Bold", got.Custodian)
	assert.Equal(t, "ACC1", got.Account)
	assert.Equal(t, "100", got.UnitPrice)
	assert.Equal(t, "2024-03-01", got.Date)
}

func TestMergeDropsOfflineSentinel(t *testing.T) {
	rec := candidate()
	rec.AssetName = model.OfflineAssetName
	rec.Completeness = model.TagEnrichmentFailed

	got := Merge(rec, Entry{Unit: "pcs"})

	assert.Empty(t, got.AssetName)
	assert.Equal(t, model.TagComplete, got.Completeness)
}

func TestClientLookup(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		var key string
		assert.NoError(t, json.Unmarshal(body, &key))
		assert.Equal(t, "raw^?2025^?1^?dev-1", key)

		inner, _ := json.Marshal([]map[string]any{{"name": "Desk", "une": 99}})
		outer, _ := json.Marshal(string(inner))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(outer)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, logger.NewNop())
	require.NoError(t, err)

	e, err := c.Lookup(context.Background(), "raw^?2025^?1^?dev-1")
	require.NoError(t, err)
	assert.Equal(t, "Desk", e.Name)
	assert.Equal(t, "99", e.Price)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClientLookupNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, logger.NewNop())
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient("  ", time.Second, logger.NewNop())
	require.Error(t, err)
}
