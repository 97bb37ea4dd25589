package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
)

func TestParseEngineTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Time{}},
		{"0", time.Time{}},
		{"2024-01-01T00:00:06Z", time.Date(2024, 1, 1, 0, 0, 6, 0, time.UTC)},
		{"2024-01-01T00:00:06.5Z", time.Date(2024, 1, 1, 0, 0, 6, 500000000, time.UTC)},
		{"1704067206", time.Date(2024, 1, 1, 0, 0, 6, 0, time.UTC)},
		{"1704067206.000000001", time.Date(2024, 1, 1, 0, 0, 6, 1, time.UTC)},
		{"1704067206.25", time.Date(2024, 1, 1, 0, 0, 6, 250000000, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseEngineTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}

	for _, bad := range []string{"yesterday", "12.", "1.1234567890", "x.5"} {
		_, err := parseEngineTime(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidTimestamp, bad)
	}
}

func TestParseLogParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/containers/web/logs?stdout=true&stderr=1&follow=true&timestamps=true&since=1704067206&tail=10", nil)
	p, err := parseLogParams(r, "web")
	require.NoError(t, err)

	assert.Equal(t, []string{"web"}, p.filter.Containers)
	assert.True(t, p.filter.Stdout)
	assert.True(t, p.filter.Stderr)
	assert.True(t, p.follow)
	assert.True(t, p.timestamps)
	assert.Equal(t, 10, p.tail)
	assert.Equal(t, int64(1704067206), p.filter.Since.Unix())
	assert.True(t, p.filter.Until.IsZero())
}

func TestParseLogParams_Tail(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", -1},
		{"tail=all", -1},
		{"tail=-1", -1},
		{"tail=0", 0},
		{"tail=999999999", constants.MaxLogLines},
	}
	for _, tt := range tests {
		p, err := parseLogParams(httptest.NewRequest("GET", "/logs?"+tt.query, nil), "web")
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.want, p.tail, tt.query)
	}

	_, err := parseLogParams(httptest.NewRequest("GET", "/logs?tail=lots", nil), "web")
	assert.Error(t, err)
	_, err = parseLogParams(httptest.NewRequest("GET", "/logs?until=soon", nil), "web")
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
}
