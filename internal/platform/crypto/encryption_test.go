package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New("a passphrase that gets stretched")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("service should be configured")
	}

	plain := []byte("akira@example.com")
	enc, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(enc, plain) {
		t.Fatal("ciphertext equals plaintext")
	}

	dec, err := svc.Decrypt(enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("round trip mismatch: %q", dec)
	}
}

func TestEncryptStringHelpers(t *testing.T) {
	svc, err := New("hunter2")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, err := svc.EncryptString("+81-90-0000-0000")
	if err != nil {
		t.Fatalf("encrypt string: %v", err)
	}
	got, err := svc.DecryptString(enc)
	if err != nil {
		t.Fatalf("decrypt string: %v", err)
	}
	if got != "+81-90-0000-0000" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestUnconfiguredPassthrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if svc.Configured() {
		t.Fatal("empty key must leave the service unconfigured")
	}
	enc, err := svc.Encrypt([]byte("plain"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if string(enc) != "plain" {
		t.Fatalf("unconfigured encrypt must pass through, got %q", enc)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	svc, err := New("some key")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, err := svc.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	enc[len(enc)-1] ^= 0xff
	if _, err := svc.Decrypt(enc); err == nil {
		t.Fatal("expected authentication failure")
	}
}

func TestDistinctNonces(t *testing.T) {
	svc, err := New("some key")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a, _ := svc.Encrypt([]byte("same input"))
	b, _ := svc.Encrypt([]byte("same input"))
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions of the same input must differ")
	}
}
