package cli

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"

	"vulnquery/db"
	"vulnquery/nvd"
	"vulnquery/osv"
	"vulnquery/utils"
)

var Version = "0.1.0"

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "vulnquery",
		Short: "Query vulnerability databases for a package version",
		Long:  "vulnquery looks up known vulnerabilities for a package at a specific version across NVD and OSV, normalizing both into one record format.",
	}

	rootCmd.PersistentFlags().String("cache-dir", utils.CacheDir(), "Directory for cached query results")
	rootCmd.PersistentFlags().StringP("source", "s", "all", "Vulnerability source (nvd, osv, all)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	_ = viper.BindPFlag("cache-dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("source", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Environment variable support (VULNQUERY_CACHE_DIR, etc.)
	viper.SetEnvPrefix("VULNQUERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if viper.GetBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
	}

	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newVulnCmd())
	rootCmd.AddCommand(newClearCacheCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// databases builds the clients selected by --source. Aggregation across
// sources happens here in the CLI; the clients themselves never merge.
func databases() ([]db.Database, error) {
	cacheDir := viper.GetString("cache-dir")
	source := strings.ToLower(viper.GetString("source"))

	var dbs []db.Database
	if source == "all" || source == "nvd" {
		c, err := nvd.NewClient(cacheDir)
		if err != nil {
			return nil, xerrors.Errorf("failed to build NVD client: %w", err)
		}
		dbs = append(dbs, c)
	}
	if source == "all" || source == "osv" {
		c, err := osv.NewClient(cacheDir)
		if err != nil {
			return nil, xerrors.Errorf("failed to build OSV client: %w", err)
		}
		dbs = append(dbs, c)
	}
	if len(dbs) == 0 {
		return nil, xerrors.Errorf("unknown source %q (expected nvd, osv, or all)", source)
	}
	return dbs, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("vulnquery %s\n", Version)
		},
	}
}
