package cryptox

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	return DeriveKey([]byte("test-secret"))
}

func TestDeriveKey_Deterministic(t *testing.T) {
	key1 := DeriveKey([]byte("secret-text"))
	key2 := DeriveKey([]byte("secret-text"))

	// same input -> same output
	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	if len(key1) != KeySize {
		t.Errorf("expected %d-byte key, got %d", KeySize, len(key1))
	}
}

func TestDeriveKey_DifferentSecrets(t *testing.T) {
	key1 := DeriveKey([]byte("secret-1"))
	key2 := DeriveKey([]byte("secret-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different secrets, got same")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := testKey()
	plaintext := []byte(`{"schemaVersion":2,"chats":[]}`)

	blob, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(blob, plaintext) {
		t.Fatalf("blob contains plaintext")
	}

	got, err := Open(blob, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("expected %q, got %q", plaintext, got)
	}
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	key := testKey()
	plaintext := []byte("same input")

	blob1, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	blob2, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if bytes.Equal(blob1, blob2) {
		t.Errorf("two seals of the same plaintext produced identical blobs")
	}
}

func TestOpen_TamperedBlobFails(t *testing.T) {
	key := testKey()

	blob, err := Seal([]byte("payload"), key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	blob[len(blob)-1] ^= 0xFF

	if _, err := Open(blob, key); err == nil {
		t.Fatalf("expected error for tampered blob")
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	blob, err := Seal([]byte("payload"), DeriveKey([]byte("key-a")))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(blob, DeriveKey([]byte("key-b"))); err == nil {
		t.Fatalf("expected error for wrong key")
	}
}

func TestOpen_TruncatedBlob(t *testing.T) {
	key := testKey()

	_, err := Open([]byte{0x01, 0x02}, key)
	if !errors.Is(err, ErrBlobTooShort) {
		t.Fatalf("expected ErrBlobTooShort, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	key := testKey()

	fp1 := Fingerprint(key)
	fp2 := Fingerprint(key)

	if fp1 != fp2 {
		t.Errorf("fingerprint should be deterministic")
	}
	if len(fp1) != 8 {
		t.Errorf("expected 8-char fingerprint, got %d", len(fp1))
	}
	if Fingerprint(DeriveKey([]byte("other"))) == fp1 {
		t.Errorf("different keys should not share a fingerprint")
	}
}
