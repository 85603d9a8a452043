package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt 2: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	original := []byte("SQLite format 3\x00 and some pages")

	sealed, err := Seal(original, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !bytes.HasPrefix(sealed, magic) {
		t.Error("sealed output missing magic prefix")
	}
	if bytes.Contains(sealed, original) {
		t.Error("sealed output contains plaintext")
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("round trip = %q, want %q", got, original)
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, _ := Seal([]byte("same"), "pw")
	b, _ := Seal([]byte("same"), "pw")
	if bytes.Equal(a, b) {
		t.Error("two seals of the same input should differ")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(sealed, "wrong"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "pw")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := Open(sealed, "pw"); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestOpenEmptyPlaintext(t *testing.T) {
	sealed, err := Seal(nil, "pw")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := Open(sealed, "pw")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bytes, want 0", len(got))
	}
}

func TestOpenBadFormat(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("short"), append([]byte("XXXX"), make([]byte, 64)...)} {
		if _, err := Open(data, "pw"); !errors.Is(err, ErrBadFormat) {
			t.Errorf("Open(%d bytes) error = %v, want ErrBadFormat", len(data), err)
		}
	}
}
