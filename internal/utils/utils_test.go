package utils

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[A-Z0-9]+-[A-Z0-9]{5}$`)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		number, err := NewOrderNumber(now)
		require.NoError(t, err)
		assert.Regexp(t, pattern, number)
		seen[number] = true
	}

	// Одинаковая метка времени, но случайный суффикс различается.
	assert.Greater(t, len(seen), 190)
}

func TestRFC3339Date(t *testing.T) {
	type payload struct {
		CreatedAt RFC3339Date  `json:"created_at"`
		ShippedAt *RFC3339Date `json:"shipped_at,omitempty"`
	}

	moscow := time.FixedZone("MSK", 3*60*60)
	data, err := json.Marshal(payload{CreatedAt: NewRFC3339Date(time.Date(2009, 11, 17, 3, 0, 0, 0, moscow))})
	require.NoError(t, err)
	assert.Equal(t, `{"created_at":"2009-11-17T00:00:00Z"}`, string(data))

	var parsed payload
	require.NoError(t, json.Unmarshal([]byte(`{"created_at":"2009-11-17T00:00:00Z","shipped_at":"2009-11-18T00:00:00Z"}`), &parsed))
	require.NotNil(t, parsed.ShippedAt)
	assert.Equal(t, 18, parsed.ShippedAt.Day())

	assert.Nil(t, NullableRFC3339Date(nil))
}
