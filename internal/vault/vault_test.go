package vault

import (
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New("test-master-key")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	const secret = "0xabc123privatekey"

	ct, err := v.Encrypt(secret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct == secret {
		t.Fatalf("ciphertext equals plaintext")
	}

	got, err := v.Decrypt(ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != secret {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestNewRequiresMasterKey(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	v, err := New("test-master-key")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	ct, err := v.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// Flip a character somewhere past the nonce prefix.
	tampered := []byte(ct)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	if _, err := v.Decrypt(string(tampered)); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	a, _ := New("key-one")
	b, _ := New("key-two")

	ct, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := b.Decrypt(ct); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptGarbage(t *testing.T) {
	v, _ := New("test-master-key")

	for _, in := range []string{"", "not base64!!!", "QQ=="} {
		if _, err := v.Decrypt(in); !errors.Is(err, ErrDecrypt) {
			t.Fatalf("input %q: expected ErrDecrypt, got %v", in, err)
		}
	}
}
