package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	appconfig "github.com/vulpemventures/ocean-ntp1/internal/app-config"
	"github.com/vulpemventures/ocean-ntp1/internal/config"
	postgresdb "github.com/vulpemventures/ocean-ntp1/internal/infrastructure/storage/db/postgres"
	"github.com/vulpemventures/ocean-ntp1/internal/metrics"
	"github.com/vulpemventures/ocean-ntp1/pkg/profiler"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	appCfg      *appconfig.AppConfig
	showMetrics bool

	rootCmd = &cobra.Command{
		Use:   "ntp1",
		Short: "CLI for ocean-ntp1 token wallet",
		Long: "This CLI lets you keep track of the wallet's token outputs and " +
			"plan multi-token transfers out of them",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
			return config.InitDatadir()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if appCfg != nil {
				appCfg.Close()
			}
		},
		SilenceUsage: true,
		Version:      formatVersion(),
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(
		&showMetrics, "metrics", false,
		"print the metrics recorded by the command to stderr",
	)
	rootCmd.AddCommand(txCmd, tokenCmd, balanceCmd, utxosCmd, transferCmd, feeCmd)
}

func main() {
	err := rootCmd.Execute()
	if showMetrics {
		if err := profiler.WriteMetrics(
			os.Stderr, nil, metrics.Namespace,
		); err != nil {
			log.WithError(err).Warn("failed to write metrics")
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getAppConfig returns the app config built from the env vars, the first
// time opening the configured database.
func getAppConfig() (*appconfig.AppConfig, error) {
	if appCfg != nil {
		return appCfg, nil
	}

	dbType := config.GetString(config.DatabaseTypeKey)
	var repoManagerConfig interface{}
	switch dbType {
	case "badger":
		repoManagerConfig = filepath.Join(config.GetDatadir(), config.DbLocation)
	case "postgres":
		repoManagerConfig = postgresdb.DbConfig{
			DbUser:             config.GetString(config.DbUserKey),
			DbPassword:         config.GetString(config.DbPassKey),
			DbHost:             config.GetString(config.DbHostKey),
			DbPort:             config.GetInt(config.DbPortKey),
			DbName:             config.GetString(config.DbNameKey),
			MigrationSourceURL: config.GetString(config.DbMigrationPath),
		}
	}

	cfg := &appconfig.AppConfig{
		MinTxFee:           int64(config.GetInt(config.MinTxFeeKey)),
		UtxoExpiryDuration: time.Duration(config.GetInt(config.UtxoExpiryDurationKey)) * time.Second,
		RepoManagerType:    dbType,
		RepoManagerConfig:  repoManagerConfig,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	appCfg = cfg
	return appCfg, nil
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
