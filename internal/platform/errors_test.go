package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorKind
	}{
		{401, ErrAuth},
		{403, ErrAuth},
		{429, ErrTransient},
		{500, ErrTransient},
		{503, ErrTransient},
		{400, ErrPlatform},
		{404, ErrPlatform},
	}
	for _, tc := range cases {
		if got := ClassifyStatus(tc.status); got != tc.want {
			t.Fatalf("ClassifyStatus(%d) got %q want %q", tc.status, got, tc.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NewError(ErrAuth, "token missing")); got != ErrAuth {
		t.Fatalf("got %q want auth", got)
	}
	wrapped := fmt.Errorf("fetch: %w", WrapError(ErrTransient, errors.New("boom"), "call api"))
	if got := KindOf(wrapped); got != ErrTransient {
		t.Fatalf("got %q want transient through wrapping", got)
	}
	if got := KindOf(context.DeadlineExceeded); got != ErrTransient {
		t.Fatalf("timeout should classify transient, got %q", got)
	}
	if got := KindOf(errors.New("unknown")); got != ErrPlatform {
		t.Fatalf("default should be platform, got %q", got)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://maps.googleapis.com/maps/api/place/details/json?key=secret&place_id=x")
	if got != "https://maps.googleapis.com/maps/api/place/details/json" {
		t.Fatalf("query not stripped: %q", got)
	}
}
