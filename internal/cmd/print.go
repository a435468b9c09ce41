package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// printReport renders the report as a terminal table.
func printReport(w io.Writer, report domain.Report) {
	bold := color.New(color.Bold)

	fmt.Fprintln(w)
	bold.Fprintln(w, "Cloud Cost Report")
	fmt.Fprintf(w, "Current period:  %s to %s\n", report.MonthStart, report.MonthEndExclusive)
	fmt.Fprintf(w, "Previous period: %s to %s\n\n", report.PrevStart, report.PrevEndExclusive)

	headerFormat := "%-20s  %-14s  %-20s  %12s\n"
	fmt.Fprintf(w, headerFormat, "Account", "Account ID", "Name", "Total")
	fmt.Fprintf(w, headerFormat,
		strings.Repeat("-", 20), strings.Repeat("-", 14),
		strings.Repeat("-", 20), strings.Repeat("-", 12))

	for _, s := range report.Summaries {
		if s.Failed {
			fmt.Fprintf(w, "%-20s  %-14s  %-20s  %12s  %s\n",
				truncate(s.AccountRef, 20), "-", "-",
				color.RedString("FAILED"),
				color.YellowString("(%s) %s", s.ErrorKind, s.ErrorDetail))
			continue
		}
		fmt.Fprintf(w, "%-20s  %-14s  %-20s  %12s\n",
			truncate(s.AccountRef, 20), s.AccountID,
			truncate(s.AccountName, 20), formatCurrency(s.Total))
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "Total (month to date):    %s\n", formatCurrency(report.TotalAll))
	fmt.Fprintf(w, "Previous (same point):    %s\n", formatCurrency(report.PrevTotal))
	fmt.Fprintf(w, "Change:                   %s (%s)\n",
		formatDelta(report.Delta), formatDeltaPct(report.DeltaPct, report.PrevTotal))

	if len(report.TopServices) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Top services")
		for _, svc := range report.TopServices {
			fmt.Fprintf(w, "  %-40s  %12s\n", truncate(svc.Service, 40), formatCurrency(svc.Cost))
		}
	}
	fmt.Fprintln(w)
}

func formatCurrency(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatDelta(delta float64) string {
	switch {
	case delta > 0:
		return color.RedString("+%s", formatCurrency(delta))
	case delta < 0:
		return color.GreenString("-%s", formatCurrency(-delta))
	default:
		return formatCurrency(0)
	}
}

func formatDeltaPct(pct, prevTotal float64) string {
	if prevTotal == 0 {
		return "n/a"
	}
	if pct > 0 {
		return color.RedString("+%.1f%%", pct)
	}
	return color.GreenString("%.1f%%", pct)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
