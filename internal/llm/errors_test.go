package llm_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alertrix/alertrix/internal/llm"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   llm.Kind
	}{
		{http.StatusUnauthorized, llm.KindAuth},
		{http.StatusForbidden, llm.KindAuth},
		{http.StatusTooManyRequests, llm.KindRateLimit},
		{http.StatusNotFound, llm.KindNotFound},
		{http.StatusGatewayTimeout, llm.KindTimeout},
		{http.StatusBadRequest, llm.KindInvalidRequest},
		{http.StatusInternalServerError, llm.KindUpstream},
		{http.StatusBadGateway, llm.KindUpstream},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, llm.KindForStatus(tt.status))
		})
	}
}

func TestServiceError(t *testing.T) {
	err := fmt.Errorf("generating: %w", llm.StatusError("openai", http.StatusTooManyRequests))

	assert.True(t, llm.IsKind(err, llm.KindRateLimit))
	assert.False(t, llm.IsKind(err, llm.KindAuth))
	assert.Contains(t, err.Error(), "openai: rate_limit (status 429)")

	empty := &llm.ServiceError{Provider: "huggingface", Kind: llm.KindEmpty, Err: llm.ErrEmptyResponse}
	assert.ErrorIs(t, empty, llm.ErrEmptyResponse)
	assert.False(t, llm.IsKind(errors.New("plain"), llm.KindEmpty))
}
