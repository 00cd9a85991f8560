package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randKey(t *testing.T) [32]byte {
	t.Helper()
	var k [32]byte
	if _, err := rand.Read(k[:]); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptDecryptContentRoundTrip(t *testing.T) {
	key := randKey(t)
	plaintext := []byte("Hello, World!")

	ciphertext, err := EncryptContent(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecryptContent(key, ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("decrypt(encrypt(p)) = %q; want %q", got, plaintext)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	key := randKey(t)
	wrongKey := randKey(t)
	ciphertext, err := EncryptContent(key, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptContent(wrongKey, ciphertext); err == nil {
		t.Fatalf("decrypt with wrong key succeeded")
	}
}

func TestEncryptNoncesAreFresh(t *testing.T) {
	key := randKey(t)
	a, err := EncryptContent(key, []byte("same plaintext"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncryptContent(key, []byte("same plaintext"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestKeyWrapRoundTrip(t *testing.T) {
	key := randKey(t)
	for _, plaintext := range [][]byte{
		[]byte(""),
		[]byte("short"),
		[]byte("exactly-16-bytes"),
		bytes.Repeat([]byte{0x42}, 100),
	} {
		wrapped, err := WrapKey(key, plaintext)
		if err != nil {
			t.Fatalf("wrap(%d bytes): %v", len(plaintext), err)
		}
		if len(wrapped)%8 != 0 {
			t.Fatalf("wrapped output length %d is not a multiple of 8", len(wrapped))
		}
		got, err := UnwrapKey(key, wrapped)
		if err != nil {
			t.Fatalf("unwrap(%d bytes): %v", len(plaintext), err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("unwrap(wrap(p)) = %q; want %q", got, plaintext)
		}
	}
}

func TestKeyWrapIsDeterministic(t *testing.T) {
	key := randKey(t)
	plaintext := []byte("deterministic header bytes")
	a, err := WrapKey(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	b, err := WrapKey(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("AES-KWP is not deterministic: %x != %x", a, b)
	}
}

func TestUnwrapRejectsTamperedInput(t *testing.T) {
	key := randKey(t)
	wrapped, err := WrapKey(key, []byte("some header bytes"))
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte{}, wrapped...)
	tampered[0] ^= 0xFF
	if _, err := UnwrapKey(key, tampered); err == nil {
		t.Fatalf("unwrap accepted tampered input")
	}
}

func TestTemporalAndSnapshotKeyDerivation(t *testing.T) {
	ratchetKey := randKey(t)
	tk := DeriveTemporalKey(ratchetKey)
	sk := tk.DeriveSnapshotKey()

	if [32]byte(tk) == [32]byte(sk) {
		t.Fatalf("snapshot key equals temporal key")
	}

	ciphertext, err := sk.Encrypt([]byte("revision content"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := sk.Decrypt(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "revision content" {
		t.Fatalf("snapshot key decrypt mismatch: %q", got)
	}
}
