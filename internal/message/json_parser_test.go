package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHistoryJSON(t *testing.T) {
	body := `[[
		{"state":"21.5","last_changed":"2024-01-01T10:00:00.123+00:00"},
		{"state":"unavailable","last_changed":"2024-01-01T10:05:00+00:00"},
		{"state":"22","last_changed":"2024-01-01T10:10:00"}
	],[{"state":"ignored","last_changed":"2024-01-01T10:00:00Z"}]]`

	obs, err := ParseHistoryJSON([]byte(body))
	require.NoError(t, err)
	require.Len(t, obs, 3)

	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 123e6, time.UTC).UnixMilli(), obs[0].LastChanged.UnixMilli())
	assert.Equal(t, 21.5, obs[0].Value().Float64)
	assert.False(t, obs[1].Value().Valid)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC), obs[2].LastChanged)
}

func TestParseHistoryJSONEmpty(t *testing.T) {
	obs, err := ParseHistoryJSON([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestParseHistoryJSONErrors(t *testing.T) {
	_, err := ParseHistoryJSON([]byte(`{"not":"a list"}`))
	assert.ErrorIs(t, err, ErrJSONUnmarshalFailed)

	_, err = ParseHistoryJSON([]byte(`[[{"state":"1","last_changed":"yesterday"}]]`))
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestParseStateJSON(t *testing.T) {
	st, err := ParseStateJSON([]byte(`{"entity_id":"sensor.a","state":"3","last_changed":"2024-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "sensor.a", st.EntityID)
	assert.Equal(t, "3", st.State)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), st.LastChanged)

	_, err = ParseStateJSON([]byte(`{"state":"3"}`))
	assert.ErrorIs(t, err, ErrMissingEntityID)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 1.25, ParseValue(" 1.25 ").Float64)
	for _, s := range []string{"", "on", "NaN", "+Inf", "unknown"} {
		assert.False(t, ParseValue(s).Valid, s)
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc...", Snippet("abcdef", 3))
	assert.Equal(t, "ab", Snippet("ab", 3))
	assert.Equal(t, "...", Snippet("ab", 0))
}
