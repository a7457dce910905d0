package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"go.uber.org/zap"
)

type HTTPConfig struct {
	Endpoint    string
	ContentType string
	// WrapQuotes surrounds the body with a literal pair of double quotes,
	// which older ingestion deployments require.
	WrapQuotes bool
	Timeout    time.Duration
}

type HTTPForwarder struct {
	cfg    HTTPConfig
	http   *http.Client
	logger logger.ZapLogger
}

func NewHTTPForwarder(cfg HTTPConfig, log logger.ZapLogger) (*HTTPForwarder, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, errors.New("ingest endpoint is empty")
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPForwarder{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}, nil
}

func (f *HTTPForwarder) Body(rec model.Record) string {
	body := EnrichedPayload(rec)
	if f.cfg.WrapQuotes {
		body = `"` + body + `"`
	}
	return body
}

func (f *HTTPForwarder) Forward(ctx context.Context, rec model.Record) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.Endpoint, bytes.NewBufferString(f.Body(rec)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", f.cfg.ContentType)

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("forward %s: %w", rec.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ingest api error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	f.logger.Debug("record forwarded", zap.String("record_id", rec.ID), zap.Int("status", resp.StatusCode))
	return nil
}
