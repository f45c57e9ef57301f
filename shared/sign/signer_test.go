package sign

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("empty paths disable signing", func(t *testing.T) {
		signer, err := New(Config{})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if signer.Enabled() {
			t.Fatalf("expected signing disabled")
		}
	})

	t.Run("missing key file is an error", func(t *testing.T) {
		_, err := New(Config{
			KeyPath:  "/nonexistent/key.pem",
			CertPath: "/nonexistent/cert.pem",
		})
		if err == nil {
			t.Fatalf("expected error for missing key material, got nil")
		}
	})

	t.Run("garbage key material is an error", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "key.pem")
		certPath := filepath.Join(dir, "cert.pem")
		if err := os.WriteFile(keyPath, []byte("not a pem"), 0600); err != nil {
			t.Fatalf("writing fixture: %s", err)
		}
		if err := os.WriteFile(certPath, []byte("not a pem"), 0600); err != nil {
			t.Fatalf("writing fixture: %s", err)
		}

		if _, err := New(Config{KeyPath: keyPath, CertPath: certPath}); err == nil {
			t.Fatalf("expected error for garbage key material, got nil")
		}
	})

	t.Run("unsupported algorithm is an error", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "key.pem")
		certPath := filepath.Join(dir, "cert.pem")
		os.WriteFile(keyPath, []byte("x"), 0600)
		os.WriteFile(certPath, []byte("x"), 0600)

		if _, err := New(Config{KeyPath: keyPath, CertPath: certPath, Algorithm: "dsa-md5"}); err == nil {
			t.Fatalf("expected error for unsupported algorithm, got nil")
		}
	})
}

func TestSignDisabled(t *testing.T) {
	signer, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	doc := []byte(`<?xml version="1.0"?><alert xmlns="urn:oasis:names:tc:emergency:cap:1.2"></alert>`)
	out, err := signer.Sign(doc)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !bytes.Equal(out, doc) {
		t.Fatalf("expected document unchanged when signing disabled, got:\n%s", out)
	}
}
