package cmd

import (
	"fmt"
	"io"
	"strings"

	"dhikr/core"
)

// renderRulesTable displays rules in a formatted table
func renderRulesTable(w io.Writer, rules []core.Rule) {
	if len(rules) == 0 {
		warningColor.Fprintln(w, "No rules configured (run 'dhikr rules seed')")
		return
	}

	headerColor.Fprintln(w, "REMINDER RULES")
	headerColor.Fprintln(w, strings.Repeat("=", 90))
	fmt.Fprintf(w, "%-6s %-28s %-18s %-20s %-12s\n", "ID", "Domain", "Path", "Category", "Reference")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, r := range rules {
		fmt.Fprintf(w, "%-6d %-28s %-18s %-20s %-12s\n",
			r.ID, truncate(r.DomainPattern, 28), formatPath(r), truncate(r.CategoryKey, 20), r.Reference)
	}

	fmt.Fprintln(w, strings.Repeat("=", 90))
	infoColor.Fprintf(w, "%d rules\n", len(rules))
}

// formatPath shows whole-domain rules as "*"
func formatPath(r core.Rule) string {
	if !r.HasPath() {
		return "*"
	}
	return truncate(r.PathPattern, 18)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
