package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateFromUnix(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want time.Time
	}{
		{
			name: "mid afternoon truncates to date",
			ts:   time.Date(2000, 7, 30, 18, 45, 3, 0, time.UTC),
			want: time.Date(2000, 7, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exact midnight unchanged",
			ts:   time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "last second of day stays on that day",
			ts:   time.Date(2019, 12, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateFromUnix(tt.ts.Unix()))
		})
	}
}

func TestDateFromUnixIsUTC(t *testing.T) {
	// The same instant expressed in another zone must land on the UTC date.
	loc := time.FixedZone("UTC+13", 13*3600)
	local := time.Date(2020, 6, 2, 1, 30, 0, 0, loc) // 2020-06-01 12:30 UTC
	got := DateFromUnix(local.Unix())
	assert.Equal(t, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), got)
}
