package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/mockapi"
	"github.com/kumbo-archives/archives-client/pkg/config"
	"github.com/kumbo-archives/archives-client/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	server := mockapi.NewServer(mockapi.ServerParams{
		Tokens:         mockapi.NewTokenIssuer(cfg.Mock.JWTSecret, cfg.Mock.JWTExpiration),
		Logger:         log,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.Mock.AllowedOrigins,
	})

	router := server.Router()

	addr := fmt.Sprintf(":%d", cfg.Mock.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("mock api listening",
			zap.String("addr", addr),
			zap.String("prefix", cfg.APIPrefix),
			zap.String("dev_password", mockapi.DevPassword),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
