package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"vulnquery/types"
)

func newVulnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vuln <id>",
		Short: "Look up a single vulnerability by identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			dbs, err := databases()
			if err != nil {
				return err
			}

			for _, d := range dbs {
				record, err := d.GetByID(id)
				if err != nil {
					return xerrors.Errorf("lookup failed: %w", err)
				}
				if record != nil {
					printRecord(record)
					return nil
				}
			}

			fmt.Printf("%s not found in the selected sources\n", id)
			return nil
		},
	}
}

func printRecord(r *types.CveRecord) {
	fmt.Printf("%s (%s)\n", r.ID, r.Source)
	fmt.Printf("Severity:  %s", colorizeSeverity(r.Severity))
	if r.CvssScore != nil {
		fmt.Printf(" (CVSS %.1f)", *r.CvssScore)
	}
	fmt.Println()
	if r.FixedVersion != "" {
		fmt.Printf("Fixed in:  %s\n", r.FixedVersion)
	}
	if r.Published != nil {
		fmt.Printf("Published: %s\n", r.Published.Format(time.RFC3339))
	}
	if r.Modified != nil {
		fmt.Printf("Modified:  %s\n", r.Modified.Format(time.RFC3339))
	}
	for _, vr := range r.AffectedVersions {
		fmt.Printf("Affected:  [%s, %s)", orAny(vr.Start), orAny(vr.End))
		if len(vr.Exact) > 0 {
			fmt.Printf(" exact %v", vr.Exact)
		}
		fmt.Println()
	}
	if r.Description != "" {
		fmt.Printf("\n%s\n", r.Description)
	}
	if len(r.References) > 0 {
		fmt.Println("\nReferences:")
		for _, ref := range r.References {
			fmt.Printf("  [%s] %s\n", ref.Type, ref.URL)
		}
	}
}

func orAny(v string) string {
	if v == "" {
		return "*"
	}
	return v
}
