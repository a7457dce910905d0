// Package middleware holds the unary interceptors of the gRPC server.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/auth"
	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ContextInterceptor resolves the calling device, using fallback when the
// caller sent no x-device-id header.
func ContextInterceptor(fallback string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		deviceID := auth.GetDeviceID(ctx)
		if deviceID == "" {
			deviceID = fallback
		}
		return handler(auth.WithDeviceID(ctx, deviceID), req)
	}
}

// AuthInterceptor resolves the signed-in scanner user from the authorization
// header. A present but invalid token is always rejected; a missing one only
// when required is set. Reflection calls are let through.
func AuthInterceptor(secret []byte, required bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if val := md.Get(auth.AuthorizationHeader); len(val) > 0 {
				token = val[0]
			}
		}

		if token == "" {
			if required && !strings.HasPrefix(info.FullMethod, "/grpc.reflection.") {
				return nil, status.Error(codes.Unauthenticated, "missing scanner token")
			}
			return handler(ctx, req)
		}

		claims, err := auth.ValidateToken(secret, token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(auth.WithScannerID(ctx, claims.UserID), req)
	}
}

func LoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
			zap.String("device_id", auth.GetDeviceID(ctx)),
			zap.String("scanned_by", auth.GetScannerID(ctx)),
		}
		switch code {
		case codes.OK:
			log.Info("grpc request", fields...)
		case codes.Internal, codes.Unknown:
			log.Error("grpc request", append(fields, zap.Error(err))...)
		default:
			log.Warn("grpc request", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// RecoveryInterceptor turns a panicking handler into codes.Internal.
func RecoveryInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in grpc handler", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
