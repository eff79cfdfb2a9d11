package idgen

import (
	"time"

	"github.com/google/uuid"
)

// NewStatusID generates a device_status row id of the form <deviceID>_<uuidv7>.
// The UUIDv7 carries capturedAt in its timestamp bits, so ids stay unique when a
// device reports the same code on every cycle.
func NewStatusID(deviceID string, capturedAt time.Time) string {
	return deviceID + "_" + newV7At(capturedAt).String()
}

// newV7At builds a version 7 UUID whose timestamp is t instead of the wall clock
func newV7At(t time.Time) uuid.UUID {
	id := uuid.Must(uuid.NewRandom())
	ms := uint64(t.UnixMilli())
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)
	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id
}

// StatusCapturedAt recovers the capture time (millisecond precision) from a status id
func StatusCapturedAt(statusID string) (time.Time, bool) {
	if len(statusID) < 36 {
		return time.Time{}, false
	}
	id, err := uuid.Parse(statusID[len(statusID)-36:])
	if err != nil || id.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := id.Time().UnixTime()
	return time.Unix(sec, nsec), true
}
