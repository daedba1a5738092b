package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/valetpay/internal/config"
	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/report"
	"github.com/mmynk/valetpay/internal/service"
	"github.com/mmynk/valetpay/internal/storage"
	"github.com/mmynk/valetpay/internal/storage/backend"
	"github.com/mmynk/valetpay/pkg/logging"
)

// app holds what every subcommand needs once the root command has run.
type app struct {
	store     storage.Store
	reconcile *service.ReconciliationService
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "reconcile",
		Short:         "Audit the tax ledger against the shift report corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := backend.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.store = store
			syncer := service.NewLedgerSynchronizer(store, store, cfg.SyncConcurrency)
			a.reconcile = service.NewReconciliationService(store, cfg.Rates, syncer)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}

	root.AddCommand(a.auditCmd(), a.correctionsCmd(), a.resyncCmd(), a.employeesCmd())
	return root
}

func (a *app) auditCmd() *cobra.Command {
	var xlsxPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Re-derive earnings for every shift and report violations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.reconcile.Validate(cmd.Context())
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				corrections, err := a.reconcile.ProposeCorrections(cmd.Context())
				if err != nil {
					return err
				}
				if err := writeWorkbook(xlsxPath, summary, corrections); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(out, summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the audit workbook to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (a *app) correctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "corrections",
		Short: "List ledger entries whose snapshots differ from a fresh computation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			corrections, err := a.reconcile.ProposeCorrections(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SHIFT\tEMPLOYEE\tEARNINGS\tRECOMPUTED\tTAX\tRECOMPUTED")
			for _, c := range corrections {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", c.ShiftID, c.EmployeeID,
					c.StoredEarnings.StringFixed(2), c.RecomputedEarnings.StringFixed(2),
					c.StoredTax.StringFixed(2), c.RecomputedTax.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

func (a *app) resyncCmd() *cobra.Command {
	var shiftID int64
	var full bool

	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Re-snapshot the ledger entries of one shift from its stored report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !full {
				return fmt.Errorf("resync only re-snapshots earnings; pass --full to confirm")
			}
			result, err := a.reconcile.ApplyCorrections(cmd.Context(), shiftID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range result.Entries {
				fmt.Fprintf(out, "employee %d: earnings %s tax %s paid %s remaining %s\n", e.EmployeeID,
					e.TotalEarnings.StringFixed(2), e.TaxAmount.StringFixed(2),
					e.PaidAmount.StringFixed(2), e.RemainingAmount.StringFixed(2))
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s: %s\n", w.Employee, w.Reason)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&shiftID, "shift", 0, "shift report ID")
	cmd.Flags().BoolVar(&full, "full", false, "overwrite earnings and tax snapshots")
	_ = cmd.MarkFlagRequired("shift")
	return cmd
}

func (a *app) employeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "Manage the employee registry",
	}

	var name, key string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register an employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := &models.Employee{Name: name, Key: key}
			if err := a.store.CreateEmployee(cmd.Context(), e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s as employee %d\n", e.Name, e.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "full name")
	add.Flags().StringVar(&key, "key", "", "short handle used on paper reports")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			employees, err := a.store.ListEmployees(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKEY")
			for _, e := range employees {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, e.Name, e.Key)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func printSummary(w io.Writer, s *models.ValidationSummary) {
	fmt.Fprintf(w, "shifts audited: %d\nvalid: %d\ninvalid: %d\n", s.ShiftsAudited, s.ValidCount, s.InvalidCount)
	for _, e := range s.CriticalErrors {
		fmt.Fprintf(w, "CRITICAL %s\n", e)
	}
	for _, d := range s.LedgerDrift {
		fmt.Fprintf(w, "DRIFT    %s\n", d)
	}
}

func writeWorkbook(path string, summary *models.ValidationSummary, corrections []models.LedgerCorrection) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	if err := report.WriteAudit(f, summary, corrections); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
