package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptPrivateKey(t *testing.T) {
	privateKey, err := GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatalf("Could not generate a RSA private Key %v", err)
	}

	encrypted, err := EncryptPrivateKey(privateKey, "correct horse battery staple")
	if err != nil {
		t.Fatalf("EncryptPrivateKey() returned error: %v", err)
	}

	// compact JWE serialization has five dot-separated segments
	if got := strings.Count(encrypted, "."); got != 4 {
		t.Errorf("encrypted key has %d dots, want 4 (compact JWE)", got)
	}

	decrypted, err := DecryptPrivateKey(encrypted, "correct horse battery staple")
	if err != nil {
		t.Fatalf("DecryptPrivateKey() returned error: %v", err)
	}

	if !privateKey.Equal(decrypted) {
		t.Error("decrypted private key does not match original")
	}
}

func TestDecryptPrivateKey_WrongSecret(t *testing.T) {
	privateKey, err := GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatalf("Could not generate a RSA private Key %v", err)
	}

	encrypted, err := EncryptPrivateKey(privateKey, "the right secret")
	if err != nil {
		t.Fatalf("EncryptPrivateKey() returned error: %v", err)
	}

	_, err = DecryptPrivateKey(encrypted, "the wrong secret")
	if err == nil {
		t.Fatal("expected an error when decrypting with the wrong secret, but got no error")
	}

	var cryptoErr Error
	if !errors.As(err, &cryptoErr) {
		t.Fatalf("expected a crypto error, got %T", err)
	}
	if cryptoErr.Code() != ErrCodeKeyManagement {
		t.Errorf("error code = %q, want %q", cryptoErr.Code(), ErrCodeKeyManagement)
	}
}

func TestEncryptPrivateKey_Validation(t *testing.T) {
	privateKey, err := GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatalf("Could not generate a RSA private Key %v", err)
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "nil private key",
			run: func() error {
				_, err := EncryptPrivateKey(nil, "secret")
				return err
			},
		},
		{
			name: "empty secret",
			run: func() error {
				_, err := EncryptPrivateKey(privateKey, "")
				return err
			},
		},
		{
			name: "empty encrypted key",
			run: func() error {
				_, err := DecryptPrivateKey("", "secret")
				return err
			},
		},
		{
			name: "empty secret on decrypt",
			run: func() error {
				_, err := DecryptPrivateKey("header.key.iv.ciphertext.tag", "")
				return err
			},
		},
		{
			name: "garbage encrypted key",
			run: func() error {
				_, err := DecryptPrivateKey("not a JWE at all", "secret")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err == nil {
				t.Error("expected an error, but got no error")
			}
		})
	}
}
