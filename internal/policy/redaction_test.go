package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +1 (555) 123-9876 and use 4242 4242 4242 4242."
	out, kinds := RedactPII(input)
	if len(kinds) != 3 {
		t.Fatalf("kinds = %v, want email, card and phone", kinds)
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
	if strings.Contains(out, "4242") {
		t.Fatalf("card digits leaked: %q", out)
	}
}

func TestRedactPIIAPIKey(t *testing.T) {
	key := "AIza" + strings.Repeat("x", 35)
	out, kinds := RedactPII("my key is " + key)
	if out != "my key is [REDACTED_KEY]" {
		t.Fatalf("out = %q", out)
	}
	if len(kinds) != 1 || kinds[0] != "api_key" {
		t.Fatalf("kinds = %v, want [api_key]", kinds)
	}
}

func TestRedactPIIClean(t *testing.T) {
	in := "A red bicycle leaning on a wall."
	out, kinds := RedactPII(in)
	if out != in || len(kinds) != 0 {
		t.Fatalf("RedactPII(%q) = %q, %v", in, out, kinds)
	}
}
