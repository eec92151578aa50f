package reliability

import "strconv"

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// StatusCodeLabel maps a provider status to a bounded metric label.
// Rate limiting and auth failures keep their exact code; the rest collapse to a class.
func StatusCodeLabel(code int) string {
	switch {
	case code == 401 || code == 403 || code == 404 || code == 429:
		return strconv.Itoa(code)
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}
