package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/billing"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/serverapp"
)

var (
	reportMonth string
	reportJSON  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Billing reports",
}

var reportMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Hours and retainer cost per client for one month",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		rep, err := serverapp.NewReporter(serverapp.NewCollections(backend)).Monthly(cmd.Context(), reportMonth)
		if err != nil {
			return err
		}
		if reportJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		return printMonthly(cmd.OutOrStdout(), rep)
	},
}

func init() {
	reportMonthlyCmd.Flags().StringVar(&reportMonth, "month", "", "YYYY-MM (default current month)")
	reportMonthlyCmd.Flags().BoolVar(&reportJSON, "json", false, "print JSON")
	reportCmd.AddCommand(reportMonthlyCmd)
	rootCmd.AddCommand(reportCmd)
}

func printMonthly(w io.Writer, rep billing.MonthlyReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Month %s\n\n", rep.Month)
	fmt.Fprintln(tw, "CLIENT\tHOURS\tRETAINER\tOVERAGE\tTOTAL")
	for _, c := range rep.Clients {
		if c.Retainer == nil {
			fmt.Fprintf(tw, "%s\t%.2f\t-\t-\t-\n", c.ClientName, c.Hours)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\n",
			c.ClientName, c.Hours, c.Retainer.RetainerCost, c.Retainer.OverageCost, c.Retainer.TotalCost)
	}
	fmt.Fprintf(tw, "TOTAL\t%.2f\t\t\t%.2f\n", rep.TotalHours, rep.TotalCost)
	return tw.Flush()
}
