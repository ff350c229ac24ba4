// routes_serve.go - HTTP server startup and lifecycle for the observability surface
// Contains: Serve() - the entry point used by cmd/gradsyncd

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gradsync/gradsync/engine"
	"github.com/gradsync/gradsync/envconfig"
)

// Serve starts the observability HTTP server bound to ln, and calls
// eng.Shutdown when it receives SIGINT/SIGTERM. It blocks until the
// listener closes.
func Serve(ln net.Listener, eng *engine.Engine) error {
	s := &Server{addr: ln.Addr(), eng: eng, allowedHosts: envconfig.AllowedHosts()}

	srvr := &http.Server{Handler: s.GenerateRoutes()}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-signals
		slog.Info("shutting down")
		srvr.Close()
		if err := eng.Shutdown(); err != nil {
			slog.Error("engine shutdown", "error", err)
		}
		cancel()
	}()

	slog.Info(fmt.Sprintf("observability surface listening on %s", ln.Addr()))
	err := srvr.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-ctx.Done()
	return nil
}
