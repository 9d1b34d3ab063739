package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	transport "advisor/internal/transport/http"
	v1 "advisor/internal/transport/http/v1"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the chat, search and admin API. The store is held open for the
lifetime of the server, so other commands cannot open it concurrently.

Examples:
  advisor serve
  advisor serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := getLogger()

	svc, err := buildServices(cfg, GetRootDir(), log)
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.warnIfStale()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	h := v1.NewHandler(svc.chat, svc.index, svc.search, svc.models(), log)
	e := transport.NewServer(h, log)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("advisor API started", "addr", addr, "llm", svc.llm.ModelName(), "embedder", svc.embedder.ModelName())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	log.Info("shutting down advisor API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("failed to shutdown server gracefully", "error", err)
	}
	log.Info("advisor API stopped")
	return nil
}
