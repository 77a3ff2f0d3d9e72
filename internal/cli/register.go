package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/animal-health-networks/petcert/internal/crypto"
	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/records"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a pet, vet or clinic",
	Long:  `Register the pets and signing parties (vets and clinics) that medical records reference`,
}

var (
	registerPetName      string
	registerPetSpecies   string
	registerPetBreed     string
	registerPetMicrochip string
)

var registerPetCmd = &cobra.Command{
	Use:   "pet",
	Short: "Register a pet",
	Long:  `Register a pet so medical records can be signed for it`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, cleanup, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		pet := &records.Pet{
			ID:        uuid.NewString(),
			Name:      registerPetName,
			Species:   strings.ToUpper(registerPetSpecies),
			Breed:     registerPetBreed,
			Microchip: registerPetMicrochip,
			CreatedAt: time.Now().UTC(),
		}
		if err := pet.Validate(); err != nil {
			return err
		}

		if err := st.CreatePet(ctx, pet); err != nil {
			return fmt.Errorf("failed to store pet: %w", err)
		}

		appLogger.Info("pet registered",
			slog.String("pet_id", pet.ID),
			slog.String("species", pet.Species),
		)
		fmt.Printf("✓ pet registered\n")
		fmt.Printf("  pet ID: %s\n", pet.ID)
		return nil
	},
}

var (
	registerVetName    string
	registerVetLicense string
	registerVetSecret  string
	registerVetKeySize int
)

var registerVetCmd = &cobra.Command{
	Use:   "vet",
	Short: "Register a veterinarian",
	Long: `Register a veterinarian as a signing party.

A fresh RSA key pair is generated: the public key is embedded on the party
record as a JWK and the private key is protected under the given secret.
The secret is needed again every time the vet signs a record.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRegisterParty(cmd.Context(), custody.RoleVet,
			registerVetName, registerVetLicense, registerVetSecret, registerVetKeySize)
	},
}

var (
	registerClinicName         string
	registerClinicRegistration string
	registerClinicSecret       string
	registerClinicKeySize      int
)

var registerClinicCmd = &cobra.Command{
	Use:   "clinic",
	Short: "Register a clinic",
	Long: `Register a clinic as a signing party.

A fresh RSA key pair is generated: the public key is embedded on the party
record as a JWK and the private key is protected under the given secret.
The secret is needed again every time the clinic countersigns a record.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRegisterParty(cmd.Context(), custody.RoleClinic,
			registerClinicName, registerClinicRegistration, registerClinicSecret, registerClinicKeySize)
	},
}

// runRegisterParty generates the party's key material and stores the party
// row. The private key only ever leaves this function PBES2-protected.
func runRegisterParty(ctx context.Context, role custody.Role, name, credential, secret string, keySize int) error {
	if keySize != 2048 && keySize != 4096 {
		return fmt.Errorf("invalid RSA key size: %d (must be 2048 or 4096)", keySize)
	}

	st, cleanup, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	privateKey, err := crypto.GenerateRSAKeyPair(keySize)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	keyID, err := crypto.GenerateKeyIDFromRSAKey(&privateKey.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to generate key ID: %w", err)
	}

	publicJWK, err := crypto.RSAPublicKeyToJWK(&privateKey.PublicKey, keyID)
	if err != nil {
		return fmt.Errorf("failed to convert public key to JWK: %w", err)
	}
	publicJWKJSON, err := json.Marshal(publicJWK)
	if err != nil {
		return fmt.Errorf("failed to marshal public JWK: %w", err)
	}

	encryptedKey, err := crypto.EncryptPrivateKey(privateKey, secret)
	if err != nil {
		return fmt.Errorf("failed to protect private key: %w", err)
	}

	party := &custody.Party{
		ID:                  uuid.NewString(),
		Role:                role,
		Name:                name,
		KeyID:               keyID,
		PublicKeyJWK:        string(publicJWKJSON),
		EncryptedPrivateKey: encryptedKey,
		CreatedAt:           time.Now().UTC(),
	}
	switch role {
	case custody.RoleVet:
		party.License = credential
	case custody.RoleClinic:
		party.Registration = credential
	}
	if err := party.Validate(); err != nil {
		return err
	}

	if err := st.CreateParty(ctx, party); err != nil {
		return fmt.Errorf("failed to store party: %w", err)
	}

	appLogger.Info("party registered",
		slog.String("party_id", party.ID),
		slog.String("role", string(role)),
		slog.String("key_id", keyID),
	)
	fmt.Printf("✓ %s registered\n", strings.ToLower(string(role)))
	fmt.Printf("  party ID: %s\n", party.ID)
	fmt.Printf("  key ID:   %s\n", keyID)
	return nil
}

func init() {
	registerPetCmd.Flags().StringVar(&registerPetName, "name", "", "Pet name (required)")
	registerPetCmd.Flags().StringVar(&registerPetSpecies, "species", "", "Species code, e.g. DOG or CAT (required)")
	registerPetCmd.Flags().StringVar(&registerPetBreed, "breed", "", "Breed")
	registerPetCmd.Flags().StringVar(&registerPetMicrochip, "microchip", "", "Microchip number")
	registerPetCmd.MarkFlagRequired("name")
	registerPetCmd.MarkFlagRequired("species")

	registerVetCmd.Flags().StringVar(&registerVetName, "name", "", "Veterinarian name (required)")
	registerVetCmd.Flags().StringVar(&registerVetLicense, "license", "", "Professional license number (required)")
	registerVetCmd.Flags().StringVar(&registerVetSecret, "secret", "", "Secret protecting the signing key (required)")
	registerVetCmd.Flags().IntVar(&registerVetKeySize, "key-size", 2048, "RSA key size in bits (2048 or 4096)")
	registerVetCmd.MarkFlagRequired("name")
	registerVetCmd.MarkFlagRequired("license")
	registerVetCmd.MarkFlagRequired("secret")

	registerClinicCmd.Flags().StringVar(&registerClinicName, "name", "", "Clinic name (required)")
	registerClinicCmd.Flags().StringVar(&registerClinicRegistration, "registration", "", "Clinic registration number (required)")
	registerClinicCmd.Flags().StringVar(&registerClinicSecret, "secret", "", "Secret protecting the signing key (required)")
	registerClinicCmd.Flags().IntVar(&registerClinicKeySize, "key-size", 2048, "RSA key size in bits (2048 or 4096)")
	registerClinicCmd.MarkFlagRequired("name")
	registerClinicCmd.MarkFlagRequired("registration")
	registerClinicCmd.MarkFlagRequired("secret")

	registerCmd.AddCommand(registerPetCmd)
	registerCmd.AddCommand(registerVetCmd)
	registerCmd.AddCommand(registerClinicCmd)
}
