package reliability

import "testing"

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := map[int]string{
		200: "ok",
		204: "ok",
		302: "unexpected_status",
		400: "client_error",
		404: "not_found",
		408: "timeout",
		422: "client_error",
		429: "rate_limited",
		500: "server_error",
		503: "server_error",
	}
	for code, want := range cases {
		if got := ClassifyHTTPStatus(code); got != want {
			t.Fatalf("ClassifyHTTPStatus(%d) = %q, want %q", code, got, want)
		}
	}
}
