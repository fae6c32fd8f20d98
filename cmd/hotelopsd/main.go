package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/config"
	"github.com/gooleh/Hotel-Management-App/internal/httpapi"
	"github.com/gooleh/Hotel-Management-App/internal/hub"
	"github.com/gooleh/Hotel-Management-App/internal/livequery"
	"github.com/gooleh/Hotel-Management-App/internal/notify"
	"github.com/gooleh/Hotel-Management-App/internal/store/postgres"
	"github.com/gooleh/Hotel-Management-App/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("hotelopsd")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	h := hub.New()
	router := notify.NewRouter(h, st)
	handler := httpapi.NewHandler(st, router, httpapi.Options{
		SessionTTL:        cfg.SessionTTL,
		NotificationLimit: cfg.NotificationLimit,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	publisher := livequery.New(st, h, livequery.Config{
		Interval:  cfg.PollInterval,
		BatchSize: cfg.PollBatchSize,
		Retention: cfg.OutboxRetention,
	})
	go publisher.Run(runCtx)

	go func() {
		if cfg.ReconcileInterval <= 0 {
			return
		}
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
			ctx, cancel := context.WithTimeout(runCtx, 10*time.Second)
			count, err := st.ReconcileArchive(ctx)
			cancel()
			if err != nil {
				log.Printf("archive reconcile error: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("archive reconcile removed %d stragglers", count)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/realtime/", httpapi.NewRealtimeHandler(st, h, router))
	mux.Handle("/", handler.Routes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "hotelopsd"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("hotelopsd listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancelRun()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
