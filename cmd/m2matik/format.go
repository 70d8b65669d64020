package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/estimate"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/export"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricetable"
)

func printResult(w io.Writer, res estimate.Result) {
	fmt.Fprintf(w, "Prisoverslag: %s\n", res.ProjectType)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, l := range res.Lines {
		fmt.Fprintf(w, "  %-14s %16s %16s %16s\n", l.Category, export.Kroner(l.Base), signed(l.Extras), export.Kroner(l.Total))
		if len(l.Matched) > 0 {
			fmt.Fprintf(w, "  %-14s tilvalg: %s\n", "", strings.Join(l.Matched, ", "))
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))

	fmt.Fprintf(w, "  %-30s %20s\n", "Subtotal", export.Kroner(res.Subtotal))
	if res.AfterGlobal != res.Subtotal {
		fmt.Fprintf(w, "  %-30s %20s\n", "Efter tillæg", export.Kroner(res.AfterGlobal))
	}
	postnr := "Efter postnummer (" + export.Factor(res.PostnrFactor) + ")"
	if res.PostnrNote != "" {
		postnr = "Efter postnummer, " + res.PostnrNote
	}
	fmt.Fprintf(w, "  %-30s %20s\n", postnr, export.Kroner(res.AfterPostnr))
	fmt.Fprintf(w, "  %-30s %20s\n", "Samlet estimat", export.Kroner(res.Total))

	if len(res.Notices) > 0 {
		fmt.Fprintf(w, "\nBEMÆRKNINGER (%d):\n", len(res.Notices))
		for _, n := range res.Notices {
			fmt.Fprintf(w, "  [%s] %s\n", n.Key, n.Message)
		}
	}
}

func signed(amount int64) string {
	if amount > 0 {
		return "+" + export.Kroner(amount)
	}
	return export.Kroner(amount)
}

func printIssues(w io.Writer, issues []pricetable.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "Result: OK (no issues)")
		return
	}
	fmt.Fprintf(w, "ISSUES (%d):\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  %s\n", issue)
	}
}
