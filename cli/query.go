package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"vulnquery/types"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <package> <version>",
		Short: "List known vulnerabilities affecting a package version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, version := args[0], args[1]

			dbs, err := databases()
			if err != nil {
				return err
			}

			var records []types.CveRecord
			for _, d := range dbs {
				found, err := d.Query(pkg, version)
				if err != nil {
					return xerrors.Errorf("query failed: %w", err)
				}
				records = append(records, found...)
			}

			if len(records) == 0 {
				fmt.Printf("No known vulnerabilities for %s %s\n", pkg, version)
				return nil
			}

			sort.SliceStable(records, func(i, j int) bool {
				return records[i].Severity.Rank() < records[j].Severity.Rank()
			})
			renderTable(records)
			return nil
		},
	}
}

func renderTable(records []types.CveRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Severity", "Score", "Fixed In", "Source", "Summary"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, r := range records {
		score := "-"
		if r.CvssScore != nil {
			score = fmt.Sprintf("%.1f", *r.CvssScore)
		}
		fixed := r.FixedVersion
		if fixed == "" {
			fixed = "-"
		}
		table.Append([]string{
			r.ID,
			colorizeSeverity(r.Severity),
			score,
			fixed,
			r.Source,
			shorten(r.Summary, 60),
		})
	}
	table.Render()
}

func colorizeSeverity(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return color.New(color.FgHiRed, color.Bold).Sprint(string(s))
	case types.SeverityHigh:
		return color.RedString(string(s))
	case types.SeverityMedium:
		return color.YellowString(string(s))
	case types.SeverityLow:
		return color.GreenString(string(s))
	default:
		return string(s)
	}
}

func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
