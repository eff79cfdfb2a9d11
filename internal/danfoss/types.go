package danfoss

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"hometemp/internal/core"
)

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   *seconds `json:"expires_in"` // Ally returns this as a string
}

func (r tokenResponse) token() (core.Token, error) {
	if r.AccessToken == "" {
		return core.Token{}, ErrMissingAccessToken
	}
	if r.ExpiresIn == nil {
		return core.Token{}, ErrMissingExpiresIn
	}
	return core.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		ExpiresIn:   int64(*r.ExpiresIn),
	}, nil
}

// seconds accepts both "3600" and 3600
type seconds int64

func (s *seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(str)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("expires_in %q is not an integer: %w", string(data), err)
	}
	if n < 0 {
		return fmt.Errorf("expires_in %d is negative", n)
	}
	*s = seconds(n)
	return nil
}

type devicesResponse struct {
	Result *[]deviceJSON `json:"result"`
	T      int64         `json:"t"`
}

type deviceJSON struct {
	ActiveTime int64        `json:"active_time"`
	CreateTime int64        `json:"create_time"`
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Online     bool         `json:"online"`
	Status     []statusJSON `json:"status"`
	Sub        bool         `json:"sub"`
	TimeZone   string       `json:"time_zone"`
	UpdateTime int64        `json:"update_time"`
	DeviceType string       `json:"device_type"`
}

type statusJSON struct {
	Code  string          `json:"code"`
	Value json.RawMessage `json:"value"`
}

func (r devicesResponse) devices() ([]core.Device, error) {
	if r.Result == nil {
		return nil, ErrMissingResult
	}
	devices := make([]core.Device, 0, len(*r.Result))
	for i, d := range *r.Result {
		if d.ID == "" {
			return nil, fmt.Errorf("device %d: %w", i, ErrMissingDeviceID)
		}
		device := core.Device{
			ID:         d.ID,
			Name:       d.Name,
			Online:     d.Online,
			Sub:        d.Sub,
			TimeZone:   d.TimeZone,
			DeviceType: d.DeviceType,
			CreateTime: d.CreateTime,
			UpdateTime: d.UpdateTime,
			ActiveTime: d.ActiveTime,
			Status:     make([]core.Status, 0, len(d.Status)),
		}
		for _, s := range d.Status {
			value := s.Value
			if len(value) == 0 {
				value = json.RawMessage("null")
			}
			device.Status = append(device.Status, core.Status{Code: s.Code, Value: value})
		}
		devices = append(devices, device)
	}
	return devices, nil
}
