package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"btc", "bitcoin"},
		{"BTC", "bitcoin"},
		{" eth ", "ethereum"},
		{"bitcoin", "bitcoin"},
		{"some-unknown-coin", "some-unknown-coin"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}
