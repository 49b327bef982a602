package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarketDayGate(t *testing.T) {
	j := &DailyCycle{}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"weekday", time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC), true}, // Monday
		{"saturday", time.Date(2025, time.June, 7, 14, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2025, time.June, 8, 14, 0, 0, 0, time.UTC), false},
		{"christmas", time.Date(2025, time.December, 25, 14, 0, 0, 0, time.UTC), false},
		{"independence day", time.Date(2025, time.July, 4, 14, 0, 0, 0, time.UTC), false},
		{"day after christmas", time.Date(2025, time.December, 26, 14, 0, 0, 0, time.UTC), true}, // Friday
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, j.isMarketDay(tt.date))
		})
	}
}
