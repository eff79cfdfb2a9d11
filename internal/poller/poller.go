// Package poller drives the fixed-cadence token/fetch/persist cycle.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hometemp/internal/clock"
	"hometemp/internal/core"
)

// DefaultInterval is the sleep between two cycles
const DefaultInterval = 30 * time.Second

var ErrInvalidInterval = errors.New("poll interval must be positive")

// Config holds the collaborators and cadence of a Poller
type Config struct {
	Tokens   core.TokenSource
	Devices  core.DeviceSource
	Writer   core.DeviceWriter
	Interval time.Duration // defaults to DefaultInterval
	Clock    clock.Clock   // defaults to clock.RealClock
	Logger   *slog.Logger
}

// Poller owns the token, its renewal time and the latest device list.
// It is driven by a single goroutine; cycles never overlap.
type Poller struct {
	tokens   core.TokenSource
	devices  core.DeviceSource
	writer   core.DeviceWriter
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	token      core.Token
	renewedAt  time.Time
	forceRenew bool
	current    []core.Device
	cycles    int
}

// CycleReport summarises what one cycle did
type CycleReport struct {
	Cycle          int
	TokenRenewed   bool
	TokenErr       error
	Fetched        bool
	FetchErr       error
	Devices        int
	Statuses       int
	Written        bool
	WriteErr       error
	SkippedNoToken bool
}

// New creates a Poller. The first cycle always acquires a token.
func New(config Config) (*Poller, error) {
	if config.Tokens == nil || config.Devices == nil || config.Writer == nil {
		return nil, errors.New("poller requires a token source, a device source and a writer")
	}
	if config.Interval < 0 {
		return nil, ErrInvalidInterval
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.Clock == nil {
		config.Clock = clock.RealClock{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Poller{
		tokens:    config.Tokens,
		devices:   config.Devices,
		writer:    config.Writer,
		interval:  config.Interval,
		clock:     config.Clock,
		logger:    config.Logger,
		renewedAt: config.Clock.Now(),
	}, nil
}

// Run sleeps for the interval and then runs a cycle, forever. Failures inside a
// cycle are logged and never end the loop; only ctx cancellation does.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Poller started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped", "cycles", p.cycles)
			return ctx.Err()
		case <-p.clock.After(p.interval):
			p.Cycle(ctx)
		}
	}
}

// Cycle performs one poll: renew the token if due, fetch, log temperatures, persist
func (p *Poller) Cycle(ctx context.Context) CycleReport {
	p.cycles++
	report := CycleReport{Cycle: p.cycles}
	logger := p.logger.With("cycle", p.cycles)

	if p.tokenDue() {
		token, err := p.tokens.AcquireToken(ctx)
		if err != nil {
			// Keep going with whatever token we hold
			report.TokenErr = err
			logger.Error("Could not fetch token",
				"step", "token",
				"kind", core.KindOf(err),
				"error", err)
		} else {
			p.token = token
			p.renewedAt = p.clock.Now()
			p.forceRenew = false
			report.TokenRenewed = true
			logger.Debug("Token renewed", "expires_in", token.ExpiresIn)
		}
	}

	if p.token.IsZero() {
		report.SkippedNoToken = true
		logger.Warn("No token acquired yet, skipping fetch", "step", "fetch")
		return report
	}

	devices, err := p.devices.FetchDevices(ctx, p.token)
	if err != nil {
		report.FetchErr = err
		logger.Error("Could not get devices",
			"step", "fetch",
			"kind", core.KindOf(err),
			"error", err)
		if core.IsUnauthorized(err) {
			// Rejected before its advertised expiry; renew on the next cycle
			p.forceRenew = true
		}
		return report
	}

	p.current = devices
	report.Fetched = true
	report.Devices = len(devices)
	report.Statuses = core.StatusCount(devices)
	p.logTemperatures(logger)

	if err := p.writer.WriteDevices(ctx, p.current, p.clock.Now()); err != nil {
		report.WriteErr = err
		logger.Error("Could not write to database",
			"step", "write",
			"kind", core.KindOf(err),
			"error", err)
		return report
	}
	report.Written = true

	logger.Info("Cycle completed",
		"devices", report.Devices,
		"statuses", report.Statuses,
		"token_renewed", report.TokenRenewed)

	return report
}

// Devices returns the device list from the most recent successful fetch
func (p *Poller) Devices() []core.Device {
	return p.current
}

// Token returns the token currently held
func (p *Poller) Token() core.Token {
	return p.token
}

func (p *Poller) tokenDue() bool {
	return p.forceRenew || p.token.DueForRenewal(p.renewedAt, p.clock.Now())
}

func (p *Poller) logTemperatures(logger *slog.Logger) {
	for i := range p.current {
		device := &p.current[i]
		for _, status := range device.Temperatures() {
			logger.Debug("Temperature",
				"device_id", device.ID,
				"device", device.Name,
				"code", status.Code,
				"value", string(status.Value))
		}
	}
}
