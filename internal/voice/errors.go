package voice

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ent0n29/voiceagents/internal/reliability"
)

var (
	ErrMissingVoiceID  = errors.New("voice id is required")
	ErrEmptyCompletion = errors.New("completion returned no content")
)

// ProviderError reports a non-2xx response from an upstream provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Retryable() bool {
	return reliability.IsRetryableHTTPStatus(e.StatusCode)
}

// ErrorCode labels err for metrics: the HTTP status class for provider errors,
// otherwise a coarse kind.
func ErrorCode(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return reliability.StatusCodeLabel(pe.StatusCode)
	case errors.Is(err, ErrMissingVoiceID):
		return "missing_voice"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty"
	default:
		return "transport"
	}
}

const maxErrorBody = 4 << 10

func readProviderResponse(provider string, res *http.Response, limit int64) ([]byte, error) {
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &ProviderError{Provider: provider, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", provider, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%s: response exceeds %d bytes", provider, limit)
	}
	return body, nil
}
