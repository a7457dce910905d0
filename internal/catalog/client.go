package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/scan"
	"go.uber.org/zap"
)

// Client performs catalog lookups over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	logger   logger.ZapLogger
}

func NewClient(endpoint string, timeout time.Duration, log logger.ZapLogger) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("catalog endpoint is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
	}, nil
}

// LookupKey is the request payload for a record: the raw label followed by
// the reporting year, month and device id, joined with the label delimiter.
func LookupKey(raw string, period model.Period, deviceID string) string {
	return strings.Join([]string{
		raw,
		strconv.Itoa(period.Year),
		strconv.Itoa(period.Month),
		deviceID,
	}, scan.Delimiter)
}

// Lookup posts key as a JSON string and decodes the first entry returned.
func (c *Client) Lookup(ctx context.Context, key string) (Entry, error) {
	body, err := json.Marshal(key)
	if err != nil {
		return Entry{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Entry{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Entry{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Entry{}, fmt.Errorf("catalog api error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	entry, err := DecodeEntry(data)
	if err != nil {
		c.logger.Debug("catalog response not decodable", zap.ByteString("body", data), zap.Error(err))
		return Entry{}, err
	}
	return entry, nil
}
