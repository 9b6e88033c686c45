package utils

import (
	"encoding/json"
	"time"
)

// RFC3339Date время, которое сериализуется в JSON в формате RFC3339 (UTC).
type RFC3339Date struct {
	time.Time
}

// NewRFC3339Date оборачивает время, приводя его к UTC.
func NewRFC3339Date(t time.Time) RFC3339Date {
	return RFC3339Date{Time: t.UTC()}
}

// NullableRFC3339Date возвращает nil для отсутствующего времени.
func NullableRFC3339Date(t *time.Time) *RFC3339Date {
	if t == nil {
		return nil
	}
	d := NewRFC3339Date(*t)
	return &d
}

func (d RFC3339Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.UTC().Format(time.RFC3339))
}

func (d *RFC3339Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
