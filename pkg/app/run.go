package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	shutdownTimeout = time.Second * 5
)

func Logger(level string) *zap.Logger {

	cfg := zap.NewProductionConfig()

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		panic(err)
	}
	cfg.Level.SetLevel(lvl)

	lg, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return lg
}

// ServeMetrics exposes the default prometheus registry on :port/metrics until ctx is done.
// A zero port disables the endpoint.
func ServeMetrics(ctx context.Context, port int, log *zap.Logger) {
	if port <= 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listen and serve", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown", zap.Error(err))
		}
	}()
	log.Info("metrics endpoint started", zap.Int("port", port))
}
