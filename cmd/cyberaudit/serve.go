package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberauditpro/cyberaudit/adapters/events"
	"github.com/cyberauditpro/cyberaudit/service"
	httptransport "github.com/cyberauditpro/cyberaudit/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var listenAddr string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	addr := cfg.HTTPAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if usesRedis(cfg) {
		client, err := newRedisClient(cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
	}

	leadStore, leadCloser, err := newLeadStore(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer leadCloser.Close()

	publisher, err := newPublisher(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	tok, err := newTokenizer(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	eventPub := events.NewWatermillPublisher(publisher)
	authService := service.NewAuthService(
		newIdentityBackend(cfg, tok),
		tok,
		newRevocationStore(redisClient),
		eventPub,
		cfg.RedirectURL,
		metrics,
		logger.Named("auth"),
	)
	leadService := service.NewLeadService(leadStore, eventPub, metrics, logger.Named("leads"))

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.SetupRouter(
		authService,
		leadService,
		httptransport.NewRateLimiter(cfg.ContactRPS, cfg.ContactBurst),
		reg,
		logger.Named("http"),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("lead_store", cfg.LeadStore),
			zap.String("identity", cfg.Identity),
			zap.String("events", cfg.Events))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
