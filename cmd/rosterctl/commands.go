package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"regdesk/internal/app"
	"regdesk/internal/dashboard"
	"regdesk/internal/roster/export"
	"regdesk/internal/roster/models"
	"regdesk/pkg/requestcontext"
)

// cliAdmin is the admin identity logged for command line confirmations.
const cliAdmin = "rosterctl"

func newSummaryCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the headline registration metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				s, err := a.Dashboard.Summary(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total participants: %d\n", s.Total)
				fmt.Fprintf(out, "Confirmed:          %d (%.1f%%)\n", s.Confirmed, s.ConfirmationRate)
				fmt.Fprintf(out, "Unconfirmed:        %d\n", s.Unconfirmed)
				fmt.Fprintf(out, "Gender (M/F):       %d/%d (%.1f%% male)\n", s.ConfirmedMale, s.ConfirmedFemale, s.MaleShare)
				return nil
			})
		},
	}
}

func newSearchCmd(open openFunc) *cobra.Command {
	var (
		region      string
		field       string
		unconfirmed bool
	)
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "List participants, optionally filtered by region and fuzzy search",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := dashboard.Query{Region: region, Field: field}
			if len(args) == 1 {
				q.Term = args[0]
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				records, err := a.Dashboard.Participants(ctx, q)
				if err != nil {
					return err
				}
				if unconfirmed {
					records = dashboard.Unconfirmed(records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No participants found matching your criteria")
					return nil
				}
				return printRecords(cmd, records)
			})
		},
	}
	cmd.Flags().StringVarP(&region, "region", "r", dashboard.AllRegions, "Region filter")
	cmd.Flags().StringVarP(&field, "field", "f", dashboard.FieldName, "Search field (Name or Contact)")
	cmd.Flags().BoolVar(&unconfirmed, "unconfirmed", false, "Only list participants awaiting confirmation")
	return cmd
}

func newConfirmCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <id>...",
		Short: "Mark participants confirmed and write the roster back",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				ctx = requestcontext.WithAdminSubject(ctx, cliAdmin)
				result, err := a.Confirmation.Confirm(ctx, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if result.Warning != "" {
					fmt.Fprintln(out, result.Warning)
					return nil
				}
				for _, r := range result.Confirmed {
					fmt.Fprintf(out, "confirmed %s %s at %s\n", r.ID, r.Name, r.ConfirmationTime)
				}
				for _, id := range result.Skipped {
					fmt.Fprintf(out, "skipped %s (already confirmed)\n", id)
				}
				return nil
			})
		},
	}
}

func newExportCmd(open openFunc) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the normalized roster to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				table, err := a.Loader.Fresh(ctx)
				if err != nil {
					return err
				}
				if err := export.WriteXLSX(table, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d participants to %s\n", len(table.Records), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "roster.xlsx", "Output workbook path")
	return cmd
}

func printRecords(cmd *cobra.Command, records []models.Registrant) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGENDER\tREGION\tPOSITION\tSTATUS")
	for i := range records {
		r := &records[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Gender, r.Region, r.Position, r.DisplayStatus())
	}
	return tw.Flush()
}
