package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	busyAttempts = 3
	busyBackoff  = 100 * time.Millisecond
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// ScanListener feeds scans published by the scanner gateway into CommitScan.
type ScanListener struct {
	reader MessageReader
	uc     record.UseCase
	logger logger.ZapLogger
	sleep  func(time.Duration)
}

func NewScanListener(reader MessageReader, uc record.UseCase, logger logger.ZapLogger) *ScanListener {
	return &ScanListener{
		reader: reader,
		uc:     uc,
		logger: logger,
		sleep:  time.Sleep,
	}
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

func (l *ScanListener) Start(ctx context.Context) {
	l.logger.Info("Starting scan Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping scan Kafka listener")
			return
		default:
			msg, err := l.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				l.sleep(time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type ScanEvent struct {
	Raw      string `json:"raw"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	DeviceID string `json:"deviceId"`
	Online   bool   `json:"online"`
}

func (l *ScanListener) processMessage(ctx context.Context, value []byte) {
	var event ScanEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal scan event", zap.Error(err))
		return
	}

	input := &dto.CommitScanInput{
		RawPayload: event.Raw,
		Year:       event.Year,
		Month:      event.Month,
		DeviceID:   event.DeviceID,
		Online:     event.Online,
	}

	var err error
	for i := 0; i < busyAttempts; i++ {
		_, err = l.uc.CommitScan(ctx, input)
		if !errors.Is(err, record.ErrBusy) {
			break
		}
		l.sleep(busyBackoff)
	}

	var rejected *record.RejectedError
	switch {
	case err == nil:
		l.logger.Debug("scan event committed", zap.String("device_id", event.DeviceID))
	case errors.As(err, &rejected):
		l.logger.Warn("scan event rejected", zap.String("device_id", event.DeviceID), zap.Error(err))
	default:
		l.logger.Error("Failed to commit scan event", zap.String("device_id", event.DeviceID), zap.Error(err))
	}
}
