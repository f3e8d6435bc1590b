// Package api is the local HTTP control surface of the client: sync status,
// manual and forced syncs, and deletions.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/engine"
	"github.com/dmitrijs2005/finsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/gin-gonic/gin"
)

// Engine is the part of the sync engine the API drives.
type Engine interface {
	Info(ctx context.Context) (engine.Info, error)
	SyncNow(ctx context.Context) error
	ForceReplaceFromCloud(ctx context.Context, opts engine.ForceOptions) error
	ForceUploadToCloud(ctx context.Context, opts engine.ForceOptions) error
	QueueDeletion(ctx context.Context, c models.Collection, id string) error
	PendingDeletions(ctx context.Context) ([]models.PendingDeletion, error)
}

// Refresher rebuilds the application state after a local write.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Handler struct {
	engine Engine
	store  records.Repository
	state  Refresher
	log    logging.Logger
}

func NewHandler(e Engine, store records.Repository, st Refresher, l logging.Logger) *Handler {
	return &Handler{engine: e, store: store, state: st, log: logging.OrNop(l).With("module", "api")}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.log))

	r.GET("/status", h.Status)
	r.GET("/pending", h.Pending)

	s := r.Group("/sync")
	{
		s.POST("", h.Sync)
		s.POST("/pull", h.Pull)
		s.POST("/push", h.Push)
	}

	r.GET("/records/:collection", h.ListRecords)
	r.DELETE("/records/:collection/:id", h.DeleteRecord)
	return r
}

func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// Serve runs the API on lis until ctx ends.
func Serve(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
