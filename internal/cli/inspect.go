package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/animal-health-networks/petcert/internal/hcert"
	"github.com/spf13/cobra"
)

var inspectFile string

var inspectCmd = &cobra.Command{
	Use:   "inspect [certificate-text]",
	Short: "Decode certificate text without verifying it",
	Long: `Decode scanned HC1: certificate text and print its claims WITHOUT any
signature or hash verification.

This is the display path used when checking what a certificate claims to be
(e.g. at a border desk before the online check). Never treat the output as
attested data.

Example:
  petcert inspect "HC1:..."
  petcert inspect --file scanned.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		switch {
		case len(args) == 1 && inspectFile == "":
			text = strings.TrimSpace(args[0])
		case len(args) == 0 && inspectFile != "":
			data, err := os.ReadFile(inspectFile)
			if err != nil {
				return fmt.Errorf("failed to read certificate text file: %w", err)
			}
			text = strings.TrimSpace(string(data))
		default:
			return fmt.Errorf("provide the certificate text as an argument or with --file")
		}

		claims, err := hcert.DecodeCertificateText(text)
		if err != nil {
			return fmt.Errorf("failed to decode certificate text: %w", err)
		}

		pretty, err := json.MarshalIndent(claims, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render claims: %w", err)
		}

		fmt.Println("decoded claims (NOT verified):")
		fmt.Println(string(pretty))
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFile, "file", "", "Path to a file containing the scanned certificate text")
}
