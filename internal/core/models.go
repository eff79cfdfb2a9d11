package core

import (
	"encoding/json"
	"time"
)

// Temperature-bearing status codes reported by Ally thermostats and room sensors
const (
	CodeRoomTemperature    = "va_temperature"
	CodeCurrentTemperature = "temp_current"
)

// Token is an OAuth2 bearer token issued by the vendor token endpoint
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64 // seconds, counted from the moment the token was received
}

// Device is a single device as reported by the vendor device list
type Device struct {
	ID         string // vendor-assigned, stable
	Name       string
	Online     bool
	Sub        bool
	TimeZone   string
	DeviceType string
	CreateTime int64 // epoch seconds
	UpdateTime int64
	ActiveTime int64
	Status     []Status
}

// Status is one telemetry reading owned by a Device
type Status struct {
	Code  string          // telemetry channel, e.g. "temp_current"
	Value json.RawMessage // scalar or object, kept as the raw JSON text
}

// IsZero reports whether the token was never issued
func (t Token) IsZero() bool {
	return t.AccessToken == ""
}

// Lifetime returns the advertised validity of the token
func (t Token) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// DueForRenewal reports whether a token renewed at renewedAt must be replaced at now.
// Expiry is measured from the local renewal time since the server returns no absolute timestamp.
func (t Token) DueForRenewal(renewedAt, now time.Time) bool {
	if t.IsZero() {
		return true
	}
	return now.Sub(renewedAt) >= t.Lifetime()
}

// IsTemperature reports whether the status carries a temperature reading
func (s Status) IsTemperature() bool {
	return s.Code == CodeRoomTemperature || s.Code == CodeCurrentTemperature
}

// Temperatures returns the temperature-bearing statuses of the device
func (d *Device) Temperatures() []Status {
	var temps []Status
	for _, s := range d.Status {
		if s.IsTemperature() {
			temps = append(temps, s)
		}
	}
	return temps
}

// StatusCount returns the total number of status entries across devices
func StatusCount(devices []Device) int {
	n := 0
	for i := range devices {
		n += len(devices[i].Status)
	}
	return n
}
