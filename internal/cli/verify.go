package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/animal-health-networks/petcert/internal/hcert"
	"github.com/animal-health-networks/petcert/internal/records"
	"github.com/spf13/cobra"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify scanned certificate text",
	Long: `Verify scanned HC1: certificate text against a stored certificate.

The text is decoded, its claims hash is compared with the stored hash, and
both the vet and clinic signatures are checked against the parties' public
keys. An invalid certificate is reported as a verdict, not an error.

Example:
  petcert verify --certificate <number> --text "HC1:..."
  petcert verify --certificate <number> --file scanned.txt`,
	RunE: runVerify,
}

var (
	verifyCertificateNumber string
	verifyText              string
	verifyFile              string
)

func init() {
	verifyCmd.Flags().StringVar(&verifyCertificateNumber, "certificate", "", "Certificate number to verify against (required)")
	verifyCmd.Flags().StringVar(&verifyText, "text", "", "Scanned certificate text")
	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "Path to a file containing the scanned certificate text")
	verifyCmd.MarkFlagRequired("certificate")
}

func runVerify(cmd *cobra.Command, args []string) error {
	text, err := certificateTextFromFlags(verifyText, verifyFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	st, cleanup, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	keyManager, err := newKeyManager(ctx, st)
	if err != nil {
		return err
	}
	verification := records.NewVerificationService(st, keyManager, appLogger)

	result, err := verification.VerifyText(ctx, verifyCertificateNumber, text)
	if err != nil {
		return fmt.Errorf("verification could not run: %w", err)
	}

	if result.Valid() {
		fmt.Println("✓ VALID certificate")
		printClaimsSummary(result.Claims)
		return nil
	}

	fmt.Println("✗ INVALID certificate")
	fmt.Printf("  reason: %s\n", result.Reason)
	if result.Detail != "" {
		fmt.Printf("  detail: %s\n", result.Detail)
	}
	return nil
}

// certificateTextFromFlags returns the scanned text from --text or --file,
// exactly one of which must be used.
func certificateTextFromFlags(text, file string) (string, error) {
	if (text == "") == (file == "") {
		return "", fmt.Errorf("provide the certificate text with either --text or --file")
	}
	if text != "" {
		return strings.TrimSpace(text), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read certificate text file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// printClaimsSummary prints the headline claims of a decoded certificate.
func printClaimsSummary(claims *hcert.Claims) {
	if claims == nil {
		return
	}
	name, _ := claims.GetString(hcert.ClaimKeyName)
	species, _ := claims.GetString(hcert.ClaimKeySpecies)
	recordType, _ := claims.GetString(hcert.ClaimKeyType)
	date, _ := claims.GetString(hcert.ClaimKeyDate)

	fmt.Printf("  pet:  %s (%s)\n", name, species)
	fmt.Printf("  type: %s on %s\n", recordType, date)
}
