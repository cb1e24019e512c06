package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the interview backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Probe(cmd.Context()); err != nil {
			return fmt.Errorf("%s", backend.DescribeProbeFailure(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backend at %s is reachable\n", client.BaseURL())
		return nil
	},
}

var questionsTopic string

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Print the default interview questions for a topic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := client.DefaultQuestions(cmd.Context(), questionsTopic)
		if err != nil {
			return err
		}
		for i, q := range qs {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, q)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend session: generated and selected personas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := client.SessionStatus(cmd.Context())
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	questionsCmd.Flags().StringVar(&questionsTopic, "topic", "", "project topic")
}
