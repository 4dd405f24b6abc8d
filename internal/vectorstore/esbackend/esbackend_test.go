package esbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScoreClampsToUnitInterval(t *testing.T) {
	assert.Equal(t, 1.0, normalizeScore(1.4))
	assert.Equal(t, 0.0, normalizeScore(-0.2))
	assert.Equal(t, 0.5, normalizeScore(0.5))
	assert.Equal(t, 1.0, normalizeScore(1.0))
	assert.Equal(t, 0.0, normalizeScore(0.0))
}

func TestTextFromFilterReadsQueryTextKey(t *testing.T) {
	assert.Equal(t, "refund policy", textFromFilter(map[string]string{"query_text": "refund policy"}))
	assert.Equal(t, "", textFromFilter(map[string]string{"org": "acme"}))
	assert.Equal(t, "", textFromFilter(nil))
}
