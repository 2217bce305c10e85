package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/marketfeed/internal/config"
	"github.com/sawpanic/marketfeed/internal/logging"
	"github.com/sawpanic/marketfeed/internal/orchestrator"
	"github.com/sawpanic/marketfeed/internal/venue"
)

const (
	appName       = "marketfeed"
	version       = "v0.1.0"
	shutdownGrace = 10 * time.Second
)

func main() {
	logging.Init()

	var configDir string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Concurrent multi-venue WebSocket market-data ingestion fan-in.",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory containing marketfeed.yaml")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the ingestion engine and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(configDir)
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Operate on venue symbol catalogs",
	}
	var verifyVenue string
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Load and validate catalog files without connecting to any venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyCatalog(configDir, verifyVenue)
		},
	}
	verifyCmd.Flags().StringVar(&verifyVenue, "venue", "", "Only verify this venue (default: all)")
	catalogCmd.AddCommand(verifyCmd)

	rootCmd.AddCommand(runCmd, catalogCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("[ERROR] marketfeed exited with error")
		os.Exit(1)
	}
}

func runEngine(configDir string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	orch, err := orchestrator.New(cfg)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch.Run(ctx)

	<-ctx.Done()
	log.Info().Msg("[INFO] shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	orch.Shutdown(shutdownCtx)

	return nil
}

func verifyCatalog(configDir, onlyVenue string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	exitCode := 0
	for _, spec := range venue.Defaults {
		if onlyVenue != "" && spec.Name != onlyVenue {
			continue
		}
		vc, ok := cfg.Venues[spec.Name]
		if !ok {
			log.Warn().Str("venue", spec.Name).Msg("[WARNING] no catalog configuration")
			continue
		}
		cat, err := orchestrator.LoadCatalog(cfg.CatalogDir, spec, vc)
		if err != nil {
			log.Error().Err(err).Str("venue", spec.Name).Msg("[ERROR] catalog verification failed")
			exitCode = 1
			continue
		}
		log.Info().Str("venue", spec.Name).Int("chunks", cat.Len()).Msg("[INFO] catalog OK")
	}
	if exitCode != 0 {
		return fmt.Errorf("one or more venue catalogs failed verification")
	}
	return nil
}
