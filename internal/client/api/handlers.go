package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/finsync/internal/client/engine"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrSyncInProgress), errors.Is(err, engine.ErrRemoteEmpty):
		code = http.StatusConflict
	case errors.Is(err, engine.ErrSyncDisabled):
		code = http.StatusServiceUnavailable
	case errors.Is(err, common.ErrorInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func (h *Handler) Status(c *gin.Context) {
	info, err := h.engine.Info(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) Pending(c *gin.Context) {
	pending, err := h.engine.PendingDeletions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if pending == nil {
		pending = []models.PendingDeletion{}
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

func (h *Handler) Sync(c *gin.Context) {
	if err := h.engine.SyncNow(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.Status(c)
}

// Pull replaces local data with the remote. ?force=true allows an empty
// remote to wipe local data.
func (h *Handler) Pull(c *gin.Context) {
	opts := engine.ForceOptions{Silent: true, SkipEmptyCheck: c.Query("force") == "true"}
	if err := h.engine.ForceReplaceFromCloud(c.Request.Context(), opts); err != nil {
		h.writeError(c, err)
		return
	}
	h.Status(c)
}

func (h *Handler) Push(c *gin.Context) {
	if err := h.engine.ForceUploadToCloud(c.Request.Context(), engine.ForceOptions{Silent: true}); err != nil {
		h.writeError(c, err)
		return
	}
	h.Status(c)
}

func (h *Handler) ListRecords(c *gin.Context) {
	col, err := models.ParseCollection(c.Param("collection"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	recs, err := h.store.GetAll(c.Request.Context(), col)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if recs == nil {
		recs = []models.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

// DeleteRecord removes the local document and queues its deletion for the
// remote.
func (h *Handler) DeleteRecord(c *gin.Context) {
	ctx := c.Request.Context()
	col, err := models.ParseCollection(c.Param("collection"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	id := c.Param("id")

	rec, err := h.store.Get(ctx, col, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rec == nil {
		h.writeError(c, common.ErrorNotFound)
		return
	}
	if err := h.store.Delete(ctx, col, id); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.engine.QueueDeletion(ctx, col, id); err != nil {
		h.log.Warn(ctx, "queue deletion failed", "key", models.DeletionKey(col, id), "error", err)
	}
	if h.state != nil {
		if err := h.state.Refresh(ctx); err != nil {
			h.log.Warn(ctx, "state refresh failed", "error", err)
		}
	}
	c.Status(http.StatusNoContent)
}
