package crypto

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cipher, err := NewAEADCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}

	plaintext := []byte(`{"username":"admin","password":"s3cret"}`)
	aad := []byte("nsx01.example.com")

	sealed, err := cipher.Encrypt(plaintext, aad)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("s3cret")) {
		t.Fatal("ciphertext leaks plaintext")
	}

	opened, err := cipher.Decrypt(sealed, aad)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(plaintext, opened) {
		t.Fatalf("roundtrip mismatch: got %q", opened)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	cipher1, _ := NewAEADCipher(testKey(t))
	cipher2, _ := NewAEADCipher(testKey(t))

	sealed, err := cipher1.Encrypt([]byte("payload"), nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := cipher2.Decrypt(sealed, nil); err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
}

func TestDecryptWrongAADFails(t *testing.T) {
	cipher, _ := NewAEADCipher(testKey(t))

	sealed, err := cipher.Encrypt([]byte("payload"), []byte("host-a"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := cipher.Decrypt(sealed, []byte("host-b")); err == nil {
		t.Fatal("expected decryption with wrong aad to fail")
	}
}

func TestInvalidKeyLength(t *testing.T) {
	if _, err := NewAEADCipher(make([]byte, 16)); err == nil {
		t.Fatal("expected 16-byte key to be rejected")
	}
}

func TestLoadOrGenerateMasterKey(t *testing.T) {
	t.Setenv(MasterKeyEnvVar, "")
	dir := t.TempDir()

	key1, err := LoadOrGenerateMasterKey(dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(key1) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key1))
	}

	info, err := os.Stat(filepath.Join(dir, "master.key"))
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	// second load reuses the persisted key
	key2, err := LoadOrGenerateMasterKey(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !bytes.Equal(key1, key2) {
		t.Fatal("expected persisted key to be reused")
	}
}
