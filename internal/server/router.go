// Package server expose les sessions d'écoute en JSON pour une interface web :
// le navigateur joue l'audio, publie sa position et applique les commandes
// média renvoyées dans chaque réponse.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/patrickprogramme/ecoute/internal/logger"
)

type RouterConfig struct {
	Handler        *Handler
	AllowedOrigins []string
	Log            *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger.OrNop(cfg.Log)))

	// Cors
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthcheck", HealthCheck)

	h := cfg.Handler
	api := router.Group("/api")
	{
		api.GET("/lessons", h.ListLessons)
		api.POST("/sessions", h.CreateSession)
	}

	sessions := api.Group("/sessions/:id")
	{
		sessions.GET("", h.GetSession)
		sessions.DELETE("", h.DeleteSession)

		// segments et lecture
		sessions.POST("/next", h.Next())
		sessions.POST("/previous", h.Previous())
		sessions.POST("/restart", h.Restart())
		sessions.POST("/play", h.Play())
		sessions.POST("/pause", h.Pause())
		sessions.POST("/speed", h.Speed())
		sessions.POST("/seek", h.Seek)
		sessions.POST("/time", h.Time)

		// questions
		sessions.POST("/answer", h.Answer)
		sessions.POST("/submit", h.Submit)
		sessions.POST("/question/next", h.NextQuestion())
		sessions.POST("/question/previous", h.PreviousQuestion())
		sessions.PUT("/mode", h.SetMode)
	}

	return router
}

// requestLogger journalise chaque requête (niveau debug, warn pour les erreurs).
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("request failed", kv...)
			return
		}
		log.Debug("request", kv...)
	}
}

// Serve écoute sur addr jusqu'à l'annulation de ctx, puis arrête proprement le serveur.
func Serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	log = logger.OrNop(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
