package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	commonmw "wasmexec/internal/common/http/middleware"
	"wasmexec/internal/exec/controller"
	"wasmexec/internal/exec/metrics"
	"wasmexec/internal/exec/sandbox"
	"wasmexec/internal/exec/sandbox/engine"
	"wasmexec/internal/exec/service"
	"wasmexec/pkg/utils/logger"
	"wasmexec/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/exec_service.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	configOptional := !isFlagSet("config")
	appCfg, err := loadAppConfig(*configPath, configOptional)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return 1
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	engineCfg, err := appCfg.Sandbox.toEngineConfig()
	if err != nil {
		logger.Error(context.Background(), "invalid sandbox config", zap.Error(err))
		return 1
	}
	eng, err := engine.NewEngine(engineCfg)
	if err != nil {
		logger.Error(context.Background(), "init sandbox engine failed", zap.Error(err))
		return 1
	}

	worker := sandbox.NewWorker(eng, metrics.Recorder{})
	execSvc, err := service.NewService(worker, service.Config{
		PoolSize:    appCfg.Worker.PoolSize,
		ExecTimeout: appCfg.Worker.Timeout,
		SlotWait:    appCfg.Worker.SlotWait,
	})
	if err != nil {
		logger.Error(context.Background(), "init exec service failed", zap.Error(err))
		return 1
	}

	httpServer := buildHTTPServer(appCfg, execSvc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr())
	if err != nil {
		logger.Error(context.Background(), "init http listener failed",
			zap.String("addr", appCfg.Server.Addr()), zap.Error(err))
		return 1
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "exec http server started",
			zap.String("addr", appCfg.Server.Addr()),
			zap.String("profile", execSvc.Profile()),
			zap.Int("pool_size", appCfg.Worker.PoolSize))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
			return 1
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}
	return 0
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func buildHTTPServer(cfg *AppConfig, execSvc *service.Service) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	execController := controller.NewExecController(execSvc,
		controller.WithMaxPayloadBytes(cfg.HTTP.MaxPayloadBytes))
	router.GET("/", execController.Usage)
	router.POST("/log", execController.Log)
	router.POST("/execute-wasm", execController.Execute)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(response.NotFound)

	return &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
