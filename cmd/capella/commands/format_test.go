package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1.999, "$2.00"}, // cents round into the whole part
		{42.5, "$42.50"},
		{-42.5, "-$42.50"},
		{1_234_567.89, "$1,234,567.89"},
		{100_000, "$100,000.00"},
		{106.25, "$106.25"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoney(tt.in), "formatMoney(%v)", tt.in)
	}
}
