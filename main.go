package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"selfplay/communication/client"
	"selfplay/communication/server"
	"selfplay/config"
	"selfplay/experiments"
	"selfplay/utils"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	pretty     bool
	statusAddr string

	rootCmd = &cobra.Command{
		Use:           "selfplay",
		Short:         "Generate training games by self-play or play matches between bots",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, pretty)
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Play every configured game and write the records",
		RunE:  runGames,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration without playing",
		RunE:  validateConfig,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the status of a running instance",
		RunE:  printStatus,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable console logs")

	for _, cmd := range []*cobra.Command{runCmd, validateCmd} {
		cmd.Flags().StringVar(&configPath, "config", "", "YAML or JSON configuration file")
		_ = cmd.MarkFlagRequired("config")
	}
	statusCmd.Flags().StringVar(&statusAddr, "addr", "localhost:8080", "address of the status server")

	rootCmd.AddCommand(runCmd, validateCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("selfplay failed")
		os.Exit(1)
	}
}

func setupLogging(level string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	return nil
}

func runGames(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pause := utils.NewPauseFlag()
	go togglePauseOnSignal(ctx, pause)

	options := []experiments.Option{experiments.WithPause(pause)}
	if cfg.Output.StatusAddr != "" {
		ss := server.NewStatusServer(cfg.Output.StatusAddr)
		go func() {
			if err := ss.Start(); err != nil {
				log.Error().Err(err).Msg("Status server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ss.Shutdown(shutdownCtx)
		}()
		options = append(options, experiments.WithPublisher(ss))
	}

	stats, err := experiments.Run(ctx, cfg, options...)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Info().Int64("games", stats.GamesFinished).Msg("Stopped by signal")
	}
	return nil
}

func togglePauseOnSignal(ctx context.Context, pause *utils.PauseFlag) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			if pause.Toggle() {
				log.Info().Msg("Paused, send SIGUSR1 again to resume")
			} else {
				log.Info().Msg("Resumed")
			}
		}
	}
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			log.Error().Str("key", cfgErr.Key).Str("source", cfgErr.Source).Msg(cfgErr.Msg)
		}
		return err
	}
	log.Info().Str("source", cfg.Source).Int("bots", len(cfg.Match.Bots)).Msg("Configuration is valid")
	return nil
}

func printStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	status, err := client.NewStatusClient(statusAddr).GetStatus(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}
