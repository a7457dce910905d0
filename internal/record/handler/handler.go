package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/fekuna/omnipos-asset-scan-service/internal/auth"
	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ ScanServiceServer = (*ScanHandler)(nil)

type ScanHandler struct {
	uc     record.UseCase
	logger logger.ZapLogger
}

func NewScanHandler(uc record.UseCase, log logger.ZapLogger) *ScanHandler {
	return &ScanHandler{
		uc:     uc,
		logger: log,
	}
}

type scanRequest struct {
	Raw      string `json:"raw"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	DeviceID string `json:"deviceId"`
	Online   bool   `json:"online"`
}

type historyRequest struct {
	Query        string `json:"query"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	Completeness string `json:"completeness"`
	Page         int    `json:"page"`
	PageSize     int    `json:"pageSize"`
}

func (r historyRequest) filters() dto.HistoryFilters {
	return dto.HistoryFilters{
		Query:        r.Query,
		Year:         r.Year,
		Month:        r.Month,
		Completeness: model.CompletenessTag(r.Completeness),
		Page:         r.Page,
		PageSize:     r.PageSize,
	}
}

func (h *ScanHandler) scanInput(ctx context.Context, req *structpb.Struct) (*dto.CommitScanInput, error) {
	var r scanRequest
	if err := decode(req, &r); err != nil {
		return nil, err
	}
	if r.DeviceID == "" {
		r.DeviceID = auth.GetDeviceID(ctx)
	}
	return &dto.CommitScanInput{
		RawPayload: r.Raw,
		Year:       r.Year,
		Month:      r.Month,
		DeviceID:   r.DeviceID,
		ScannedBy:  auth.GetScannerID(ctx),
		Online:     r.Online,
	}, nil
}

func (h *ScanHandler) CommitScan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := h.scanInput(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := h.uc.CommitScan(ctx, input)
	if err != nil {
		return nil, h.toStatus("failed to commit scan", err)
	}
	return encode(commitResponse(res))
}

func (h *ScanHandler) PreviewScan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := h.scanInput(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := h.uc.PreviewScan(ctx, input)
	if err != nil {
		var rejected *record.RejectedError
		if res != nil && errors.As(err, &rejected) && rejected.Cause == nil {
			// A blocking verdict is the answer a preview asks for.
			return encode(commitResponse(res))
		}
		return nil, h.toStatus("failed to preview scan", err)
	}
	return encode(commitResponse(res))
}

func (h *ScanHandler) Sync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r struct {
		Online bool `json:"online"`
	}
	if err := decode(req, &r); err != nil {
		return nil, err
	}

	summary, err := h.uc.Sync(ctx, &dto.SyncInput{Online: r.Online})
	if err != nil {
		return nil, h.toStatus("failed to sync records", err)
	}
	return encode(summary)
}

func (h *ScanHandler) ListHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r historyRequest
	if err := decode(req, &r); err != nil {
		return nil, err
	}
	filters := r.filters()

	records, total, err := h.uc.ListHistory(ctx, &filters)
	if err != nil {
		return nil, h.toStatus("failed to list history", err)
	}
	return encode(map[string]any{
		"records": records,
		"total":   total,
	})
}

func (h *ScanHandler) DeleteRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r struct {
		IDs []string `json:"ids"`
	}
	if err := decode(req, &r); err != nil {
		return nil, err
	}
	if len(r.IDs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "ids are required")
	}

	removed, err := h.uc.DeleteRecords(ctx, r.IDs)
	if err != nil {
		return nil, h.toStatus("failed to delete records", err)
	}
	return encode(map[string]any{"removed": removed})
}

func (h *ScanHandler) ClearHistory(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	removed, err := h.uc.ClearHistory(ctx)
	if err != nil {
		return nil, h.toStatus("failed to clear history", err)
	}
	return encode(map[string]any{"removed": removed})
}

func (h *ScanHandler) Export(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r struct {
		Format  string         `json:"format"`
		IDs     []string       `json:"ids"`
		Filters historyRequest `json:"filters"`
	}
	if err := decode(req, &r); err != nil {
		return nil, err
	}

	file, err := h.uc.Export(ctx, &dto.ExportInput{
		Format:  dto.ExportFormat(r.Format),
		IDs:     r.IDs,
		Filters: r.Filters.filters(),
	})
	if err != nil {
		return nil, h.toStatus("failed to export records", err)
	}
	return encode(map[string]any{
		"filename":    file.Filename,
		"contentType": file.ContentType,
		"count":       file.Count,
		"data":        base64.StdEncoding.EncodeToString(file.Data),
	})
}

func commitResponse(res *dto.CommitResult) map[string]any {
	reasons := res.Verdict.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	notices := res.Notices
	if notices == nil {
		notices = []string{}
	}
	out := map[string]any{
		"stage": string(res.Stage),
		"verdict": map[string]any{
			"level":   res.Verdict.Level.String(),
			"reasons": reasons,
		},
		"forwarded": res.Forwarded,
		"notices":   notices,
	}
	if res.Record != nil {
		out["record"] = res.Record
	}
	return out
}

// toStatus maps use case errors onto gRPC codes.
func (h *ScanHandler) toStatus(msg string, err error) error {
	var rejected *record.RejectedError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &rejected):
		if rejected.Cause != nil {
			return status.Error(codes.InvalidArgument, rejected.Error())
		}
		return status.Error(codes.FailedPrecondition, rejected.Verdict.Reason())
	case errors.Is(err, record.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.As(err, &verrs):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		return status.Error(codes.Internal, err.Error())
	}
}

func decode(req *structpb.Struct, dst any) error {
	if req == nil {
		return nil
	}
	data, err := json.Marshal(req.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return status.Error(codes.InvalidArgument, "malformed request: "+err.Error())
	}
	return nil
}

// encode converts v to a Struct through its JSON form so nested values end
// up as the []any and map[string]any shapes structpb accepts.
func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}
