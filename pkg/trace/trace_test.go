package trace

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), "abc123")
	if got := FromContext(ctx); got != "abc123" {
		t.Fatalf("FromContext() = %q, want %q", got, "abc123")
	}
}

func TestWithContextIgnoresEmpty(t *testing.T) {
	ctx := context.Background()
	if WithContext(ctx, "") != ctx {
		t.Fatal("expected the original context for an empty trace id")
	}
	if got := FromContext(ctx); got != "" {
		t.Fatalf("FromContext() = %q, want empty", got)
	}
}

func TestFromHeader(t *testing.T) {
	if got := FromHeader(" given "); got != "given" {
		t.Fatalf("FromHeader() = %q, want %q", got, "given")
	}
	generated := FromHeader("")
	if len(generated) != 32 {
		t.Fatalf("generated trace id %q has length %d, want 32", generated, len(generated))
	}
	if generated == FromHeader("") {
		t.Fatal("expected distinct generated trace ids")
	}
}
