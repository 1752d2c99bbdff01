package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the processing history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := build(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Created", "File", "Status", "Records", "Error", "Document"})
		table.SetAutoWrapText(false)
		table.SetBorder(false)
		for _, r := range runs {
			table.Append([]string{
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.FileName,
				string(r.Status),
				strconv.Itoa(r.Records),
				r.ErrorCode,
				r.DocumentID,
			})
		}
		table.Render()
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := build(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.History.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to show")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "Print runs as JSON")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
}
