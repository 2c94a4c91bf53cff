package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-registry/internal/model"
)

var (
	searchTerm string
	addRequest model.PatientRequest
)

var patientsCmd = &cobra.Command{
	Use:     "patients",
	Aliases: []string{"patient"},
	Short:   "List, register and remove patients",
}

var patientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patients, newest first",
	Long: `List prints every registered patient, newest first.

Example:
  registry patients list
  registry patients list --search ada
  registry patients list --json`,
	RunE: runPatientsList,
}

var patientsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a patient",
	Long: `Add registers a patient. First and last name are required.

Example:
  registry patients add --first-name Ada --last-name Lovelace
  registry patients add --first-name Grace --last-name Hopper --email grace@example.com --date-of-birth 1906-12-09`,
	RunE: runPatientsAdd,
}

var patientsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a patient",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatientsDelete,
}

var patientsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count registrations in total, this month and this week",
	RunE:  runPatientsStats,
}

func init() {
	patientsListCmd.Flags().StringVar(&searchTerm, "search", "", "match first name, last name, email or phone")

	f := patientsAddCmd.Flags()
	f.StringVar(&addRequest.FirstName, "first-name", "", "first name (required)")
	f.StringVar(&addRequest.LastName, "last-name", "", "last name (required)")
	f.StringVar(&addRequest.Email, "email", "", "email address")
	f.StringVar(&addRequest.Phone, "phone", "", "phone number")
	f.StringVar(&addRequest.DateOfBirth, "date-of-birth", "", "date of birth (YYYY-MM-DD)")
	f.StringVar(&addRequest.Gender, "gender", "", "male, female, other or prefer_not_to_say")
	f.StringVar(&addRequest.Address, "address", "", "postal address")
	f.StringVar(&addRequest.EmergencyContactName, "emergency-contact-name", "", "emergency contact name")
	f.StringVar(&addRequest.EmergencyContactPhone, "emergency-contact-phone", "", "emergency contact phone")
	f.StringVar(&addRequest.MedicalHistory, "medical-history", "", "medical history")
	f.StringVar(&addRequest.Allergies, "allergies", "", "known allergies")
	f.StringVar(&addRequest.Medications, "medications", "", "current medications")
	f.StringVar(&addRequest.InsuranceProvider, "insurance-provider", "", "insurance provider")
	f.StringVar(&addRequest.InsurancePolicyNumber, "insurance-policy-number", "", "insurance policy number")
	_ = patientsAddCmd.MarkFlagRequired("first-name")
	_ = patientsAddCmd.MarkFlagRequired("last-name")

	patientsCmd.AddCommand(patientsListCmd)
	patientsCmd.AddCommand(patientsAddCmd)
	patientsCmd.AddCommand(patientsDeleteCmd)
	patientsCmd.AddCommand(patientsStatsCmd)
}

func runPatientsList(cmd *cobra.Command, args []string) error {
	patients, err := registry.Patients.ListPatients(cmd.Context(), &model.PatientFilters{SearchTerm: searchTerm})
	if err != nil {
		return fmt.Errorf("list patients: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, patients)
	}
	if len(patients) == 0 {
		fmt.Fprintln(out, "No patients found.")
		return nil
	}
	return writePatients(out, patients)
}

func runPatientsAdd(cmd *cobra.Command, args []string) error {
	req := addRequest
	patient, err := registry.Patients.CreatePatient(cmd.Context(), origin, &req)
	if err != nil {
		return describe(err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), patient)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s: %s\n", patient.FullName(), patient.ID)
	return nil
}

func runPatientsDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid patient ID %q", args[0])
	}
	if err := registry.Patients.DeletePatient(cmd.Context(), origin, id); err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted patient %s\n", id)
	return nil
}

func runPatientsStats(cmd *cobra.Command, args []string) error {
	stats, err := registry.Patients.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("patient stats: %w", err)
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), stats)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nThis month: %d\nThis week: %d\n",
		stats.Total, stats.ThisMonth, stats.ThisWeek)
	return nil
}

func writePatients(w io.Writer, patients []*model.Patient) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tDATE OF BIRTH\tREGISTERED")
	for _, p := range patients {
		dob := ""
		if p.DateOfBirth != nil {
			dob = string(*p.DateOfBirth)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.FullName(), deref(p.Email), deref(p.Phone), dob,
			p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
