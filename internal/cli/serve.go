package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nyan-bot/internal/bootstrap"
	"nyan-bot/internal/config"
	"nyan-bot/internal/server"
	"nyan-bot/internal/tracer"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe blocks until ctx is cancelled or the gateway fails.
func runServe(ctx context.Context) error {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, cfg)

	// 4. Start Background Services
	log.Println("Background: Starting Usage Consumer...")
	if err := container.UsageConsumer.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}
	if container.StyleModeListener != nil {
		if err := container.StyleModeListener.Start(ctx); err != nil {
			log.Printf("[WARN] Style mode control disabled: %v", err)
		}
	}

	// 5. Admin server
	var srv *server.Server
	if cfg.App.HTTPEnabled {
		srv = server.New(cfg, container)
		go func() {
			if err := srv.Run(); err != nil {
				log.Printf("[ERROR] Admin server stopped: %v", err)
			}
		}()
	}

	// 6. Discord gateway
	if err := container.Gateway.Open(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(err, shutdown(shutdownCtx, srv, container))
	}
	log.Println("Bot is running. Press Ctrl+C to exit.")

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-container.Gateway.Fatal():
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := shutdown(shutdownCtx, srv, container); err != nil {
		log.Printf("[WARN] Shutdown incomplete: %v", err)
	}
	if err := container.Gateway.Close(); err != nil {
		log.Printf("[WARN] Discord gateway close: %v", err)
	}
	return runErr
}

// shutdown drains the sequencer before the caller closes the gateway so queued answers still go out.
func shutdown(ctx context.Context, srv *server.Server, container *bootstrap.Container) error {
	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server: %w", err))
		}
	}
	if err := container.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
