package cli

import (
	"errors"
	"fmt"

	"github.com/animal-health-networks/petcert/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <certificate-number>",
	Short: "Show a stored certificate",
	Long:  `Show the stored certificate for a certificate number: the attested record, the signing parties and the claims hash`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		number := args[0]

		st, cleanup, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		certificate, err := st.GetCertificate(ctx, number)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no certificate with number %s", number)
			}
			return fmt.Errorf("failed to load certificate: %w", err)
		}

		fmt.Printf("certificate %s\n", certificate.Number)
		fmt.Printf("  record ID:   %s\n", certificate.RecordID)
		fmt.Printf("  vet:         %s (key %s)\n", certificate.VetPartyID, certificate.VetKeyID)
		fmt.Printf("  clinic:      %s (key %s)\n", certificate.ClinicPartyID, certificate.ClinicKeyID)
		fmt.Printf("  claims hash: %s\n", certificate.ClaimsHash)
		fmt.Printf("  issued at:   %s\n", certificate.IssuedAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}
