package crypto_test

import (
	"strings"
	"testing"

	"github.com/alexandreamato/spamanvil/internal/crypto"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e, err := crypto.NewEncryptor([]byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	plain := "sk-abcdef1234567890"
	enc, err := e.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if enc == plain || enc == "" {
		t.Fatalf("ciphertext should differ from plaintext, got %q", enc)
	}

	dec, err := e.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if dec != plain {
		t.Fatalf("round trip mismatch: got %q want %q", dec, plain)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	e, _ := crypto.NewEncryptor([]byte("unit-test-secret"))

	if _, err := e.Decrypt("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := e.Decrypt("YWJjZA=="); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}

	other, _ := crypto.NewEncryptor([]byte("different-secret"))
	enc, _ := other.Encrypt("secret-value")
	if _, err := e.Decrypt(enc); err == nil {
		t.Fatal("expected error when decrypting with the wrong key")
	}
}

func TestEmptyStringPassesThrough(t *testing.T) {
	e, _ := crypto.NewEncryptor([]byte("unit-test-secret"))
	if enc, err := e.Encrypt(""); err != nil || enc != "" {
		t.Fatalf("empty encrypt: got %q, %v", enc, err)
	}
	if dec, err := e.Decrypt(""); err != nil || dec != "" {
		t.Fatalf("empty decrypt: got %q, %v", dec, err)
	}
}

func TestMask(t *testing.T) {
	if got := crypto.Mask(""); got != "" {
		t.Fatalf("empty mask: %q", got)
	}
	if got := crypto.Mask("short"); got != "*****" {
		t.Fatalf("short values fully masked, got %q", got)
	}
	got := crypto.Mask("sk-abcdef1234567890")
	if !strings.HasPrefix(got, "sk-") || !strings.HasSuffix(got, "7890") || strings.Contains(got, "abcdef") {
		t.Fatalf("mask should keep prefix/suffix only, got %q", got)
	}
}
