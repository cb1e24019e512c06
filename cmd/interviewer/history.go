package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved interview runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := client.ListHistory(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no saved runs")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIMESTAMP\tTOPIC\tPRODUCTS\tPERSONAS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", e.ID, e.Timestamp, e.Topic, e.ProductCount, len(e.PersonaNames))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one saved run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := client.GetHistory(cmd.Context(), args[0])
		if errors.Is(err, backend.ErrHistoryNotFound) {
			return fmt.Errorf("no saved run with id %q", args[0])
		}
		if err != nil {
			return err
		}
		var pretty any = rec
		if len(rec.Raw) > 0 {
			pretty = rec.Raw
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyShowCmd)
}
