package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/api"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/services/tetris"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] invalid configuration: %v", err)
	}
	cfg.ConfigureLogging()
	if cfg.BypassAuth {
		log.Warn("[Main] BYPASS_AUTH is enabled, requests are not authenticated")
	}

	sessionManager := tetris.NewSessionManager(tetris.ManagerConfig{
		DefaultRows:  cfg.DefaultRows,
		DefaultCols:  cfg.DefaultCols,
		MaxDimension: cfg.MaxBoardSize,
		IdleTimeout:  cfg.SessionTimeout,
		ReapInterval: cfg.ReapInterval,
		PieceSeed:    cfg.PieceSeed,
	})

	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.BypassAuth)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(sessionManager, auth, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(log.Fields{
			"port":      cfg.Port,
			"rows":      cfg.DefaultRows,
			"cols":      cfg.DefaultCols,
			"max_board": cfg.MaxBoardSize,
		}).Info("[Main] server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Main] server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("[Main] shutting down")

	// WebSocketクライアントを先に切断してからHTTPサーバーを止める
	sessionManager.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("[Main] graceful shutdown failed")
	}
}
