package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// DeviceHeader carries the scanning device's id on incoming calls.
const DeviceHeader = "x-device-id"

type (
	deviceKey  struct{}
	scannerKey struct{}
)

func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceKey{}, deviceID)
}

// GetDeviceID returns the device id set by the interceptor, falling back to
// the raw metadata.
func GetDeviceID(ctx context.Context) string {
	if val, ok := ctx.Value(deviceKey{}).(string); ok && val != "" {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(DeviceHeader); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// WithScannerID records the authenticated user operating the device.
func WithScannerID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, scannerKey{}, userID)
}

// GetScannerID is empty when the call carried no valid token.
func GetScannerID(ctx context.Context) string {
	val, _ := ctx.Value(scannerKey{}).(string)
	return val
}
