// Command hello serves the sample application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abiiranathan/qute-lsp/config"
	"github.com/abiiranathan/qute-lsp/sample"
)

func main() {
	configFile := flag.String("config", "", "Path to a qute-lsp.yaml config file")
	addr := flag.String("addr", "", "Listen address (overrides hello.addr)")
	flag.Parse()

	if err := run(*configFile, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "hello:", err)
		os.Exit(1)
	}
}

func run(configFile, addr string) error {
	overrides := map[string]any{}
	if addr != "" {
		overrides["hello.addr"] = addr
	}
	cfg, err := config.Load(config.Options{File: configFile, Overrides: overrides})
	if err != nil {
		return err
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Log.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := sample.NewServer(logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Hello.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
