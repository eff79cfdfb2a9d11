package logging

import (
	"context"
	"log/slog"
	"time"

	"hometemp/internal/core"
)

// TokenSourceLogger wraps a TokenSource and logs every acquisition
type TokenSourceLogger struct {
	source core.TokenSource
	logger *slog.Logger
}

// NewTokenSourceLogger creates a new logging decorator for TokenSource
func NewTokenSourceLogger(source core.TokenSource, logger *slog.Logger) core.TokenSource {
	return &TokenSourceLogger{
		source: source,
		logger: logger.With("interface", "TokenSource"),
	}
}

func (l *TokenSourceLogger) AcquireToken(ctx context.Context) (core.Token, error) {
	start := time.Now()
	l.logger.Debug("AcquireToken called")

	token, err := l.source.AcquireToken(ctx)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("AcquireToken failed",
			"kind", core.KindOf(err),
			"duration", duration,
			"error", err)
		return token, err
	}

	// Never log the token itself
	l.logger.Debug("AcquireToken completed",
		"token_type", token.TokenType,
		"expires_in", token.ExpiresIn,
		"duration", duration)

	return token, nil
}

// DeviceSourceLogger wraps a DeviceSource and logs every fetch
type DeviceSourceLogger struct {
	source core.DeviceSource
	logger *slog.Logger
}

// NewDeviceSourceLogger creates a new logging decorator for DeviceSource
func NewDeviceSourceLogger(source core.DeviceSource, logger *slog.Logger) core.DeviceSource {
	return &DeviceSourceLogger{
		source: source,
		logger: logger.With("interface", "DeviceSource"),
	}
}

func (l *DeviceSourceLogger) FetchDevices(ctx context.Context, token core.Token) ([]core.Device, error) {
	start := time.Now()
	l.logger.Debug("FetchDevices called")

	devices, err := l.source.FetchDevices(ctx, token)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("FetchDevices failed",
			"kind", core.KindOf(err),
			"duration", duration,
			"error", err)
		return devices, err
	}

	l.logger.Debug("FetchDevices completed",
		"devices", len(devices),
		"statuses", core.StatusCount(devices),
		"duration", duration)

	return devices, nil
}

// DeviceWriterLogger wraps a DeviceWriter and logs every write
type DeviceWriterLogger struct {
	writer core.DeviceWriter
	logger *slog.Logger
}

// NewDeviceWriterLogger creates a new logging decorator for DeviceWriter
func NewDeviceWriterLogger(writer core.DeviceWriter, logger *slog.Logger) core.DeviceWriter {
	return &DeviceWriterLogger{
		writer: writer,
		logger: logger.With("interface", "DeviceWriter"),
	}
}

func (l *DeviceWriterLogger) WriteDevices(ctx context.Context, devices []core.Device, capturedAt time.Time) error {
	start := time.Now()
	l.logger.Debug("WriteDevices called",
		"devices", len(devices),
		"captured_at", capturedAt)

	err := l.writer.WriteDevices(ctx, devices, capturedAt)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("WriteDevices failed",
			"kind", core.KindOf(err),
			"devices", len(devices),
			"duration", duration,
			"error", err)
		return err
	}

	l.logger.Debug("WriteDevices completed",
		"devices", len(devices),
		"statuses", core.StatusCount(devices),
		"duration", duration)

	return nil
}
