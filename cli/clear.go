package cli

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove cached query results for the selected sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbs, err := databases()
			if err != nil {
				return err
			}
			for _, d := range dbs {
				if err := d.ClearCache(); err != nil {
					return xerrors.Errorf("failed to clear cache: %w", err)
				}
			}
			log.Info("cache cleared")
			return nil
		},
	}
}
