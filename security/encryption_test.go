package security

import (
	"strings"
	"testing"
)

func newTestSealer(t *testing.T, passphrase string) *Sealer {
	t.Helper()
	s, err := NewSealer(passphrase)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	return s
}

func TestSealOpenRoundTrip(t *testing.T) {
	s := newTestSealer(t, "test-encryption-key-12345678901234")

	testCases := []struct {
		name  string
		value string
	}{
		{"Simple text", "admin@tregorent.local|1700000000"},
		{"Empty string", ""},
		{"Unicode", "ñandú|ü"},
		{"Long text", strings.Repeat("x", 1000)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := s.Seal(tc.value)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}
			if strings.ContainsAny(token, "+/=") {
				t.Errorf("Token %q is not URL safe", token)
			}

			got, err := s.Open(token)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if got != tc.value {
				t.Errorf("Expected %q, got %q", tc.value, got)
			}
		})
	}
}

func TestSealIsRandomized(t *testing.T) {
	s := newTestSealer(t, "key")

	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("Expected two seals of the same value to differ")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	s := newTestSealer(t, "key")
	token, err := s.Seal("uid")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	flipped := []byte(token)
	if flipped[5] == 'A' {
		flipped[5] = 'B'
	} else {
		flipped[5] = 'A'
	}

	for _, bad := range []string{"", "not base64!", "AAAA", string(flipped)} {
		if _, err := s.Open(bad); err != ErrMalformedToken {
			t.Errorf("Open(%q): expected ErrMalformedToken, got %v", bad, err)
		}
	}
}

func TestOpenRequiresSameKey(t *testing.T) {
	token, _ := newTestSealer(t, "one").Seal("uid")

	if _, err := newTestSealer(t, "two").Open(token); err == nil {
		t.Error("Expected a different key to fail")
	}
	if got, err := newTestSealer(t, "one").Open(token); err != nil || got != "uid" {
		t.Errorf("Expected the same passphrase to open the token, got %q, %v", got, err)
	}
}

func TestRandomKeySealers(t *testing.T) {
	a := newTestSealer(t, "")
	b := newTestSealer(t, "")

	token, _ := a.Seal("uid")
	if _, err := b.Open(token); err == nil {
		t.Error("Expected independently generated keys to differ")
	}
}
