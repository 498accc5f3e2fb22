package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := deriveKey("mypassphrase", salt)
	key2 := deriveKey("mypassphrase", salt)

	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, deriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	original := []byte("SQLite format 3\x00 and some pages")

	sealed, err := Seal(original, "correct-passphrase")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if len(sealed) <= saltSize+nonceSize+len(original) {
		t.Errorf("sealed length = %d, too short", len(sealed))
	}
	if bytes.Contains(sealed, original) {
		t.Error("sealed output contains plaintext")
	}

	got, err := Open(sealed, "correct-passphrase")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("open = %q, want %q", got, original)
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, _ := Seal([]byte("same"), "pw")
	b, _ := Seal([]byte("same"), "pw")
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("two seals should not share a salt")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(sealed, "wrong"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("err = %v, want ErrDecrypt", err)
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, _ := Seal([]byte("secret data"), "pw")
	sealed[len(sealed)-1] ^= 0xff
	if _, err := Open(sealed, "pw"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("err = %v, want ErrDecrypt", err)
	}
}

func TestOpenTooSmall(t *testing.T) {
	if _, err := Open([]byte("short"), "pw"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("err = %v, want ErrDecrypt", err)
	}
}
