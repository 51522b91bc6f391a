package reliability

// IsRetryableHTTPStatus classifies statuses where a later identical request may succeed.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ClassifyHTTPStatus buckets a status code into a low-cardinality label.
func ClassifyHTTPStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "ok"
	case code == 404:
		return "not_found"
	case code == 408:
		return "timeout"
	case code == 429:
		return "rate_limited"
	case code >= 400 && code < 500:
		return "client_error"
	case code >= 500 && code < 600:
		return "server_error"
	default:
		return "unexpected_status"
	}
}
