package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"promptrun/internal/config"
	"promptrun/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve past run results over HTTP (plus /healthz and /metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.ApplyDefaults()
		log := newLogger(pick(logLevel, cfg.LogLevel))
		httpapi.SetLogger(log)

		srv := &http.Server{Addr: serveAddr, Handler: httpapi.NewMux(cfg.ResultsDir)}
		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", serveAddr).Str("results_dir", cfg.ResultsDir).Msg("serving results")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-stop:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	defaultAddr := ":8080"
	if v := os.Getenv("PROMPTRUN_ADDR"); v != "" {
		defaultAddr = v
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "HTTP listen address")
}
