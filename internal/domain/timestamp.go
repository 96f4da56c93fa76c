package domain

import (
	"encoding/json"
	"time"
)

// Timestamp is a point in time that serializes as integer milliseconds since
// the Unix epoch.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to millisecond precision so that it survives a
// round trip through the snapshot unchanged.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{time.UnixMilli(t.UnixMilli()).UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UnixMilli())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*t = Timestamp{time.UnixMilli(ms).UTC()}
	return nil
}

// Seconds is a duration stored as whole seconds.
type Seconds int

func (s Seconds) Duration() time.Duration {
	return time.Duration(s) * time.Second
}
