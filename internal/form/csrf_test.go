package form

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"
)

func TestTokens_RoundTrip(t *testing.T) {
	tk, err := NewTokens(bytes.Repeat([]byte("k"), 32), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := tk.Generate("sess-a")
	if err != nil {
		t.Fatal(err)
	}
	if !tk.Verify("sess-a", tok) {
		t.Fatal("fresh token rejected")
	}
	if tk.Verify("sess-b", tok) {
		t.Fatal("token verified for another session")
	}
	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	raw[len(raw)-1] ^= 0xff
	if tk.Verify("sess-a", base64.RawURLEncoding.EncodeToString(raw)) {
		t.Fatal("tampered token accepted")
	}
	if tk.Verify("sess-a", "%%%") {
		t.Fatal("garbage accepted")
	}
}

func TestTokens_Expiry(t *testing.T) {
	tk, _ := NewTokens(bytes.Repeat([]byte("k"), 32), time.Minute)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tk.now = func() time.Time { return base }

	tok, _ := tk.Generate("s")

	tk.now = func() time.Time { return base.Add(59 * time.Second) }
	if !tk.Verify("s", tok) {
		t.Fatal("token rejected inside max age")
	}
	tk.now = func() time.Time { return base.Add(2 * time.Minute) }
	if tk.Verify("s", tok) {
		t.Fatal("expired token accepted")
	}
	tk.now = func() time.Time { return base.Add(-5 * time.Minute) }
	if tk.Verify("s", tok) {
		t.Fatal("future token accepted")
	}
}

func TestNewTokens_Key(t *testing.T) {
	if _, err := NewTokens([]byte("short"), 0); err == nil {
		t.Fatal("short key accepted")
	}
	a, err := NewTokens(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewTokens(nil, 0)
	tok, _ := a.Generate("s")
	if b.Verify("s", tok) {
		t.Fatal("two random keys verified each other's tokens")
	}
}
