package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/estimate"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/export"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricetable"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

func loadTable(ctx context.Context, opts *options) (*pricing.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	table, err := pricetable.Load(ctx, &http.Client{Timeout: opts.timeout}, opts.table)
	if err != nil {
		return nil, fmt.Errorf("loading price table: %w", err)
	}
	return table, nil
}

func runEstimate(cmd *cobra.Command, opts *options, selectionPath, xlsxPath string, asJSON bool) error {
	sel, err := loadSelection(selectionPath)
	if err != nil {
		return err
	}
	table, err := loadTable(cmd.Context(), opts)
	if err != nil {
		return err
	}

	// Notices are part of the printed result.
	diag := pricing.NewDiagnostics(log.New(io.Discard, "", 0))
	calc := pricing.NewCalculator(table, pricing.WithReporter(diag))

	var res estimate.Result
	switch sel.Type {
	case estimate.ProjectAddition:
		res = estimate.Addition(calc, sel.Addition)
	case estimate.ProjectRenovation:
		res = estimate.Renovation(calc, sel.Renovation)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
	} else {
		printResult(out, res)
	}

	if xlsxPath != "" {
		if err := writeWorkbook(xlsxPath, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", xlsxPath)
	}
	return nil
}

func writeWorkbook(path string, res estimate.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating workbook: %w", err)
	}
	if err := export.WriteXLSX(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing workbook: %w", err)
	}
	return nil
}

func runLint(cmd *cobra.Command, opts *options) error {
	table, err := loadTable(cmd.Context(), opts)
	if err != nil {
		return err
	}

	issues := pricetable.Lint(table)
	printIssues(cmd.OutOrStdout(), issues)
	if len(issues) > 0 {
		return fmt.Errorf("price table has %d issue(s)", len(issues))
	}
	return nil
}

func runPostnr(cmd *cobra.Command, opts *options, arg string) error {
	postcode, err := strconv.Atoi(arg)
	if err != nil || postcode < 0 || postcode > 9999 {
		return fmt.Errorf("postcode %q must be a number between 0 and 9999", arg)
	}
	table, err := loadTable(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rule, ok := pricing.MatchPostnr(postcode, table.Postnr)
	if !ok {
		fmt.Fprintf(out, "%04d: no postal rule, factor %s\n", postcode, export.Factor(1))
		return nil
	}
	fmt.Fprintf(out, "%04d: factor %s (%04d-%04d", postcode, export.Factor(pricing.PostnrFactor(postcode, table.Postnr)), rule.From, rule.To)
	if rule.Note != "" {
		fmt.Fprintf(out, ", %s", rule.Note)
	}
	fmt.Fprintln(out, ")")
	return nil
}
