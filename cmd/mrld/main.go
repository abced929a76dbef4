package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/metrics"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/mrld"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/observability"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/logger"
)

func main() {
	var grpcAddr string
	var httpAddr string
	var logLevel string
	var logFormat string

	// a missing .env file is fine
	_ = godotenv.Load()

	flag.StringVar(&grpcAddr, "grpc-addr", envOr("MRLD_GRPC_ADDR", ":50051"), "gRPC listen address")
	flag.StringVar(&httpAddr, "http-addr", envOr("MRLD_HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", envOr("MRLOPT_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", envOr("MRLOPT_LOG_FORMAT", "text"), "log format (text, json)")
	flag.Parse()

	log := logger.NewFormat(logFormat, logLevel, os.Stdout)
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv("mrld"), log)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	store := mrld.NewRunStore()
	executor := mrld.NewRunExecutor(store, collector)
	notifier := mrld.NewNotifier()
	executor.SetNotifier(notifier)

	grpcServer := grpc.NewServer()
	health := mrld.RegisterOptimizationServiceServer(grpcServer, mrld.NewOptimizationGRPCServer(store, executor))

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", grpcAddr, "error", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mrld.NewHTTPServer(store, executor, collector).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()
	health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	if err := executor.Shutdown(shutdownCtx); err != nil {
		logger.Error("executor shutdown error", "error", err)
	}
	notifier.Wait()
	observability.ShutdownWithTimeout(shutdownCtx, shutdownTracing, log)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
