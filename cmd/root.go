package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"webplayer/config"
	"webplayer/logger"
)

var (
	cfg           *config.Config
	flagMediaRoot string
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "webplayer",
	Short: "Web-Player serves a folder of media files for browsing and continuous playback.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if flagMediaRoot != "" {
			cfg.MediaRoot = config.AbsPath(flagMediaRoot)
		}
		if flagLogLevel != "" {
			cfg.Log.Level = flagLogLevel
		}
		return logger.Init(logger.Config{
			Level:      cfg.Log.Level,
			OutputPath: cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	// Without a subcommand the server is started.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMediaRoot, "media-root", "", "media directory (overrides MEDIA_ROOT)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.AddCommand(serveCmd, syncCmd, browseCmd)
}
