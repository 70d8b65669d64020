package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultTable = "data/prisliste.json"

type options struct {
	table   string
	timeout time.Duration
}

func main() {
	os.Exit(execute(newRootCmd()))
}

// execute runs cmd and prints a failure once to its error stream.
func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "m2matik:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "m2matik",
		Short:         "Renovation cost estimates from the M2Matik price table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	table := os.Getenv("PRICE_TABLE_URL")
	if table == "" {
		table = defaultTable
	}
	rootCmd.PersistentFlags().StringVarP(&opts.table, "table", "t", table, "price table path or http(s) URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "fetch timeout for URL tables")

	rootCmd.AddCommand(estimateCmd(opts))
	rootCmd.AddCommand(lintCmd(opts))
	rootCmd.AddCommand(postnrCmd(opts))
	return rootCmd
}

func estimateCmd(opts *options) *cobra.Command {
	var xlsxPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "estimate [selection-file]",
		Short: "Price a project selection (YAML or JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, opts, args[0], xlsxPath, asJSON)
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the breakdown to this Excel file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func lintCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Report data-quality issues in the price table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLint(cmd, opts)
		},
	}
}

func postnrCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "postnr [postcode]",
		Short: "Show the postal factor for a postcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPostnr(cmd, opts, args[0])
		},
	}
}
