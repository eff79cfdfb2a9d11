package core

import (
	"context"
	"time"
)

// TokenSource acquires bearer tokens from the vendor
type TokenSource interface {
	AcquireToken(ctx context.Context) (Token, error)
}

// DeviceSource fetches the current device list using a bearer token
type DeviceSource interface {
	FetchDevices(ctx context.Context, token Token) ([]Device, error)
}

// DeviceWriter persists one poll cycle worth of devices and statuses
type DeviceWriter interface {
	WriteDevices(ctx context.Context, devices []Device, capturedAt time.Time) error
}
