package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighestNumber(t *testing.T) {
	tests := []struct {
		name    string
		numbers []string
		prefix  string
		want    int64
	}{
		{"empty", nil, "INV", 0},
		{"sequential", []string{"INV1", "INV2", "INV10"}, "INV", 10},
		{"skips foreign formats", []string{"INV3", "INV-2024-99", "INVX", "PAY40"}, "INV", 3},
		{"custom prefix", []string{"BILL7", "BILL12"}, "BILL", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, highestNumber(tt.numbers, tt.prefix))
		})
	}
}
