package utils

import (
	"errors"
	"testing"
	"time"
)

func TestCursor_RoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	s, err := EncodeCursor(at, "m-1")
	if err != nil {
		t.Fatalf("EncodeCursor error: %v", err)
	}

	c, err := DecodeCursor(s)
	if err != nil {
		t.Fatalf("DecodeCursor error: %v", err)
	}
	if !c.At.Equal(at) || c.ID != "m-1" {
		t.Fatalf("got %+v", c)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, in := range []string{"", "%%%", "bm90LWpzb24"} {
		if _, err := DecodeCursor(in); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("DecodeCursor(%q) = %v, want ErrInvalidCursor", in, err)
		}
	}
}

func TestNotifyChannel(t *testing.T) {
	ch := BuildNotifyChannel("u-1")
	if ch != "cohorthub:notify:u-1" {
		t.Fatalf("unexpected channel %q", ch)
	}

	id, ok := UserIDFromNotifyChannel(ch)
	if !ok || id != "u-1" {
		t.Fatalf("got %q %v", id, ok)
	}

	if _, ok := UserIDFromNotifyChannel("other:u-1"); ok {
		t.Fatalf("expected foreign channel to be rejected")
	}
}
