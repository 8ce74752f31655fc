package affiliation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceErrorTaxonomy(t *testing.T) {
	underlying := errors.New("connection reset")
	err := NewSourceError(ErrorUpstreamOutage, "affiliation", "transport failure", underlying)

	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, underlying)
	assert.Equal(t, "affiliation affiliation [upstream_outage]: transport failure: connection reset", err.Error())

	wrapped := fmt.Errorf("chunk 2: %w", err)
	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, ErrorUpstreamOutage, GetCategory(wrapped))

	assert.False(t, NewSourceError(ErrorBadData, "ticker", "empty ticker", nil).Retryable)
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
}
