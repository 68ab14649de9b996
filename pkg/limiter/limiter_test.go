package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLimit(t *testing.T) {
	rate, err := ParseLimit("5-S")
	assert.NoError(t, err)
	assert.InDelta(t, 5.0, rate.Rate, 0.001)

	rate, err = ParseLimit("60-M")
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, rate.Rate, 0.001)

	rate, err = ParseLimit("3600-H")
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, rate.Rate, 0.001)

	rate, err = ParseLimit("86400-D")
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, rate.Rate, 0.001)
}

func TestParseLimitRejectsBadFormat(t *testing.T) {
	for _, input := range []string{"", "5", "5-X", "abc-S", "5-S-M"} {
		_, err := ParseLimit(input)
		assert.Error(t, err, input)
	}
}
