package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   string
	}{
		{"empty", nil, "0.00"},
		{"single", []int{4}, "4.00"},
		{"rounds half up", []int{5, 4, 4}, "4.33"},
		{"two thirds", []int{1, 2, 2}, "1.67"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Average(tt.scores).StringFixed(2))
		})
	}
}
