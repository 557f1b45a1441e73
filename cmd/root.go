package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/logger"
	"github.com/l3uddz/delugetools/runtime"
	"github.com/l3uddz/delugetools/stringutils"
)

var (
	// Global flags
	flagLogLevel     = 0
	flagConfigFile   = "config.yaml"
	flagConfigFolder = config.GetDefaultConfigDirectory("delugetools", flagConfigFile)
	flagLogFile      = "activity.log"

	flagDryRun  bool
	flagTimeout time.Duration

	// Global vars
	log *logrus.Entry = logger.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "delugetools",
	Short: "Tools for managing a pool of Deluge daemons",
	Long: `A CLI application that spreads torrents across several Deluge daemons,
rewrites trackers and culls torrents to reclaim space.
`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Parse persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFolder, "config-dir", flagConfigFolder, "Config folder")
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", flagConfigFile, "Config file")
	rootCmd.PersistentFlags().StringVarP(&flagLogFile, "log", "l", flagLogFile, "Log file")
	rootCmd.PersistentFlags().CountVarP(&flagLogLevel, "verbose", "v", "Verbose level")

	rootCmd.PersistentFlags().BoolVarP(&flagDryRun, "dry-run", "n", false, "Dry run mode")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Per-call daemon timeout (overrides rpc_timeout)")
}

func initCore(showAppInfo bool) {
	// Set core variables
	if !rootCmd.PersistentFlags().Changed("config") {
		flagConfigFile = filepath.Join(flagConfigFolder, flagConfigFile)
	}
	if !rootCmd.PersistentFlags().Changed("log") {
		flagLogFile = filepath.Join(flagConfigFolder, flagLogFile)
	}

	// Init Logging
	if err := logger.Init(flagLogLevel, flagLogFile); err != nil {
		log.WithError(err).Fatal("Failed to initialize logging")
	}

	log = logger.GetLogger("app")

	// Init Config
	if err := config.Init(flagConfigFile); err != nil {
		log.WithError(err).Fatal("Failed to initialize config")
	}

	// Show App Info
	if showAppInfo {
		showUsing()
	}
}

func showUsing() {
	// show app info
	log.Infof("Using %s = %s (%s@%s)", stringutils.LeftJust("VERSION", " ", 10),
		runtime.Version, runtime.GitCommit, runtime.Timestamp)
	logger.ShowUsing()
	config.ShowUsing()
	if flagDryRun {
		log.Warnf("Using %s = %v", stringutils.LeftJust("DRY_RUN", " ", 10), flagDryRun)
	}
	log.Info("------------------")
}
