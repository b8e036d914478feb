package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shannon/internal/backend"
	"shannon/internal/server"
)

// serveCmd hosts the generation service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /generate",
	Long: `Starts the generation service. Each request trains a model of order
"strength" on the uploaded text and returns "num_sentences" sentences.

The backend is chosen by server.backend: ngram (default), openai or gemini.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, or SHANNON_ADDR)")
	serveCmd.Flags().String("backend", "", "Generation backend: ngram, openai, gemini")
}

func runServe(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Server.Backend = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, flush := withUsage(ctx)
	defer flush()

	gen, err := backend.New(ctx, cfg)
	if err != nil {
		return err
	}
	srv, err := server.New(gen, server.Options{
		Addr:           cfg.Server.Addr,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MaxConnections: cfg.Server.MaxConnections,
		RequestTimeout: cfg.GetRequestTimeout(),
		AllowOrigin:    cfg.Server.AllowOrigin,
	})
	if err != nil {
		return err
	}

	logger.Info("serving", zap.String("addr", cfg.Server.Addr), zap.String("backend", cfg.Server.Backend))
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	logger.Info("Received shutdown signal")
	return nil
}
