// relay-server hosts the Voice Live relay over HTTP: session routes, an SSE
// event stream for browsers, and an administrative surface.
//
// Configuration comes from the environment (a .env file is honored when
// present):
//
//	VOICELIVE_RESOURCE     AI Foundry resource name (required)
//	VOICELIVE_API_KEY      upstream api-key credential (required)
//	VOICELIVE_API_VERSION  Voice Live API version (required)
//	VOICELIVE_MODEL        model identifier (required)
//	RELAY_ADDR             listen address (default :8080)
//	RELAY_LOG_LEVEL        zap level: debug, info, warn, error (default info)
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/river-hendriksen/voicerelay"
	"github.com/river-hendriksen/voicerelay/relayhttp"
)

func main() {
	_ = godotenv.Load()

	log := newLogger(os.Getenv("RELAY_LOG_LEVEL"))
	defer log.Sync()

	cfg := voicerelay.Config{
		Resource:    mustEnv(log, "VOICELIVE_RESOURCE"),
		Model:       mustEnv(log, "VOICELIVE_MODEL"),
		APIVersion:  mustEnv(log, "VOICELIVE_API_VERSION"),
		Credential:  voicerelay.APIKey(mustEnv(log, "VOICELIVE_API_KEY")),
		DialTimeout: 15 * time.Second,
		Logger: func(event string, fields map[string]any) {
			log.Info(event, zap.Any("fields", fields))
		},
	}

	relay, err := voicerelay.New(cfg)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	defer relay.Close()

	addr := os.Getenv("RELAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           relayhttp.NewServer(relay, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("relay server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}

func mustEnv(log *zap.Logger, key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatal("missing required environment variable", zap.String("key", key))
	}
	return v
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if level != "" {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}
