package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/animal-health-networks/petcert/internal/records"
	"github.com/spf13/cobra"
)

var (
	issuePetID        string
	issueVetID        string
	issueClinicID     string
	issueType         string
	issueDate         string
	issueDescription  string
	issueVaccineName  string
	issueVaccineBatch string
	issueLaboratory   string
	issueValidFrom    string
	issueValidUntil   string
	issueRabies       bool
	issueVetSecret    string
	issueClinicSecret string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a medical record and issue its certificate",
	Long: `Create a medical record, collect the vet and clinic signatures over it and
issue the scannable certificate in one step.

The record content is captured as an immutable snapshot at signing time;
the certificate and its HC1: text are derived from that snapshot.

Example:
  petcert issue --pet <pet-id> --vet <vet-id> --clinic <clinic-id> \
    --type VACCINE --description "Annual rabies booster" \
    --vaccine Rabivax --batch RB-2026-031 --laboratory VetLabs \
    --valid-from 2026-03-15 --valid-until 2027-03-15 --rabies \
    --vet-secret <secret> --clinic-secret <secret>`,
	Args: cobra.NoArgs,
	RunE: runIssue,
}

func runIssue(cmd *cobra.Command, args []string) error {
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
	signing := records.NewSigningService(st, st, st, keyManager, appLogger)
	issuance := records.NewIssuanceService(st, st, appLogger)

	// the date of the medical act defaults to today
	if issueDate == "" {
		issueDate = time.Now().UTC().Format("2006-01-02")
	}

	input := records.SignRecordInput{
		PetID:        issuePetID,
		VetID:        issueVetID,
		ClinicID:     issueClinicID,
		Type:         records.RecordType(issueType),
		Date:         issueDate,
		Description:  issueDescription,
		VetSecret:    issueVetSecret,
		ClinicSecret: issueClinicSecret,
	}

	// Only build a vaccine block when vaccine flags were used; whether the
	// block is required or forbidden for the record type is decided by the
	// domain validation.
	vaccineFlags := []string{"vaccine", "batch", "laboratory", "valid-from", "valid-until", "rabies"}
	for _, flag := range vaccineFlags {
		if cmd.Flags().Changed(flag) {
			input.Vaccine = &records.VaccineDetails{
				Name:       issueVaccineName,
				Batch:      issueVaccineBatch,
				Laboratory: issueLaboratory,
				ValidFrom:  issueValidFrom,
				ValidUntil: issueValidUntil,
				Rabies:     issueRabies,
			}
			break
		}
	}

	record, err := signing.SignRecord(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to sign record: %w", err)
	}

	certificate, err := issuance.IssueCertificate(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("failed to issue certificate: %w", err)
	}

	text, err := records.QRText(certificate)
	if err != nil {
		return fmt.Errorf("failed to render certificate text: %w", err)
	}

	appLogger.Info("certificate issued",
		slog.String("record_id", record.ID),
		slog.String("certificate_number", certificate.Number),
	)
	fmt.Printf("✓ medical record signed (record ID: %s)\n", record.ID)
	fmt.Printf("✓ certificate issued (number: %s)\n", certificate.Number)
	fmt.Printf("\n%s\n", text)
	return nil
}

func init() {
	issueCmd.Flags().StringVar(&issuePetID, "pet", "", "Pet ID (required)")
	issueCmd.Flags().StringVar(&issueVetID, "vet", "", "Signing vet party ID (required)")
	issueCmd.Flags().StringVar(&issueClinicID, "clinic", "", "Countersigning clinic party ID (required)")
	issueCmd.Flags().StringVar(&issueType, "type", "", "Record type: ANNUAL_CHECK, VACCINE, TREATMENT or DEWORMING (required)")
	issueCmd.Flags().StringVar(&issueDate, "date", "", "Date of the medical act, YYYY-MM-DD (default: today)")
	issueCmd.Flags().StringVar(&issueDescription, "description", "", "Free-text description of the medical act")
	issueCmd.Flags().StringVar(&issueVaccineName, "vaccine", "", "Vaccine name (VACCINE records)")
	issueCmd.Flags().StringVar(&issueVaccineBatch, "batch", "", "Vaccine batch number (VACCINE records)")
	issueCmd.Flags().StringVar(&issueLaboratory, "laboratory", "", "Vaccine laboratory (VACCINE records)")
	issueCmd.Flags().StringVar(&issueValidFrom, "valid-from", "", "Vaccine validity start, YYYY-MM-DD")
	issueCmd.Flags().StringVar(&issueValidUntil, "valid-until", "", "Vaccine validity end, YYYY-MM-DD")
	issueCmd.Flags().BoolVar(&issueRabies, "rabies", false, "Mark the vaccine as an anti-rabies vaccine")
	issueCmd.Flags().StringVar(&issueVetSecret, "vet-secret", "", "Vet's signing key secret (required)")
	issueCmd.Flags().StringVar(&issueClinicSecret, "clinic-secret", "", "Clinic's signing key secret (required)")
	issueCmd.MarkFlagRequired("pet")
	issueCmd.MarkFlagRequired("vet")
	issueCmd.MarkFlagRequired("clinic")
	issueCmd.MarkFlagRequired("type")
	issueCmd.MarkFlagRequired("vet-secret")
	issueCmd.MarkFlagRequired("clinic-secret")
}
