package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/nijaru/skryba/config"
	"github.com/nijaru/skryba/gateway"
	"github.com/nijaru/skryba/logger"
	"github.com/nijaru/skryba/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log, err := logger.New(logger.Options{
		Dir:   cfg.LogDir,
		File:  "gateway.log",
		Level: cfg.LogLevel,
		Debug: cfg.Debug,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}

	fwd, err := gateway.NewForwarder(cfg.Gateway.ScribeServiceURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure gateway")
	}

	handler := middleware.Chain(gateway.Routes(fwd),
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logging(log),
		middleware.CORS(cfg.CORS),
	)

	// no read/write timeouts: the upstream call lasts as long as the transcription
	server := &http.Server{
		Addr:        ":" + cfg.Gateway.Port,
		Handler:     handler,
		IdleTimeout: cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":     cfg.Gateway.Port,
			"upstream": cfg.Gateway.ScribeServiceURL,
		}).Info("Starting gateway")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("Gateway stopped with error")
	}
	log.Info("Gateway stopped")
}
