// keygen is a CLI tool for generating party signing keys for testing and
// manual key configuration.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	petcrypto "github.com/animal-health-networks/petcert/internal/crypto"
	"github.com/animal-health-networks/petcert/internal/version"
	"github.com/spf13/cobra"
)

// file naming convention - name.public.jwk and name.private.jwe
const (
	publicKeyFileNameFormat  = "%s.public.jwk"
	privateKeyFileNameFormat = "%s.private.jwe"
)

var (
	name      string
	outputDir string
	secret    string
	rsaSize   int
	kid       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "keygen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "RSA key generator for certificate signing parties",
		Long:              "Generate RSA key pairs for vets and clinics: a public JWK set plus a PBES2-encrypted private key that only the party secret can open",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair",
		Long:  "Generate a new RSA key pair for a signing party and write it to the output directory in JWK/JWE format",
		RunE:  runGenerate,
	}

	generateCmd.Flags().StringVarP(&name, "name", "n", "", "Base name for the key files (e.g., vet-silva) [required]")
	generateCmd.Flags().StringVarP(&secret, "secret", "p", "", "Secret used to encrypt the private key [required]")
	generateCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for generated keys [required]")
	generateCmd.Flags().IntVarP(&rsaSize, "size", "s", 4096, "RSA key size in bits (2048 or 4096, default: 4096)")
	generateCmd.Flags().StringVarP(&kid, "kid", "k", "", "Key ID (default: auto-generated from thumbprint)")
	generateCmd.MarkFlagRequired("name")
	generateCmd.MarkFlagRequired("secret")
	generateCmd.MarkFlagRequired("outputdir")

	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if rsaSize != 2048 && rsaSize != 4096 {
		return fmt.Errorf("invalid RSA key size: %d (must be 2048 or 4096)", rsaSize)
	}

	// make the directory if it doesn't exist
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fmt.Printf("Generating %d-bit RSA key pair: %s\n", rsaSize, name)

	privateKey, err := petcrypto.GenerateRSAKeyPair(rsaSize)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	// Generate key ID from thumbprint if not provided
	keyID := kid
	if keyID == "" {
		keyID, err = petcrypto.GenerateKeyIDFromRSAKey(&privateKey.PublicKey)
		if err != nil {
			return fmt.Errorf("failed to generate key ID: %w", err)
		}
	}

	// Save public key
	publicFile := fmt.Sprintf(publicKeyFileNameFormat, name)
	if err := petcrypto.SaveRSAPublicKeyToJWKFile(&privateKey.PublicKey, keyID, outputDir, publicFile); err != nil {
		return fmt.Errorf("failed to save public key: %w", err)
	}
	fmt.Printf("✓ Public JWK:  %s (kid: %s)\n", filepath.Join(outputDir, publicFile), keyID)

	// Encrypt and save private key - the plaintext key never touches disk
	encryptedKey, err := petcrypto.EncryptPrivateKey(privateKey, secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt private key: %w", err)
	}

	privateFile := fmt.Sprintf(privateKeyFileNameFormat, name)
	privatePath := filepath.Join(outputDir, privateFile)
	if err := os.WriteFile(privatePath, []byte(encryptedKey), 0600); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	fmt.Printf("✓ Private JWE: %s (kid: %s)\n", privatePath, keyID)

	return nil
}
