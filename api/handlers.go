package api

import (
	"net/http"

	"github.com/chxlky/kanban-sync/kanban"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Sync *kanban.Synchronizer
}

type moveRequest struct {
	SourceColumnID string `json:"source_column_id" binding:"required"`
	SourceIndex    *int   `json:"source_index" binding:"required"`
	DestColumnID   string `json:"dest_column_id" binding:"required"`
	DestIndex      *int   `json:"dest_index" binding:"required"`
}

type columnRequest struct {
	Title string `json:"title"`
}

type taskRequest struct {
	Content string `json:"content"`
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetBoardHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.Sync.Board())
}

func (h *Handler) ReloadBoardHandler(c *gin.Context) {
	b, err := h.Sync.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// MoveTaskHandler answers as soon as the move is applied locally; the
// remote catches up in the background.
func (h *Handler) MoveTaskHandler(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": kanban.KindInvalid, "message": "Invalid JSON payload: " + err.Error()})
		return
	}

	b, err := h.Sync.Reorder(req.SourceColumnID, *req.SourceIndex, req.DestColumnID, *req.DestIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, b)
}

func (h *Handler) AddColumnHandler(c *gin.Context) {
	var req columnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": kanban.KindInvalid, "message": "Invalid JSON payload: " + err.Error()})
		return
	}

	col, err := h.Sync.AddColumn(c.Request.Context(), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, col)
}

func (h *Handler) RenameColumnHandler(c *gin.Context) {
	var req columnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": kanban.KindInvalid, "message": "Invalid JSON payload: " + err.Error()})
		return
	}

	col, err := h.Sync.RenameColumn(c.Request.Context(), c.Param("columnId"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

func (h *Handler) DeleteColumnHandler(c *gin.Context) {
	if err := h.Sync.DeleteColumn(c.Request.Context(), c.Param("columnId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddTaskHandler(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": kanban.KindInvalid, "message": "Invalid JSON payload: " + err.Error()})
		return
	}

	task, err := h.Sync.AddTask(c.Request.Context(), c.Param("columnId"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) DeleteTaskHandler(c *gin.Context) {
	if err := h.Sync.DeleteTask(c.Request.Context(), c.Param("columnId"), c.Param("taskId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) FailuresHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"failures": h.Sync.Failures()})
}

func respondError(c *gin.Context, err error) {
	kind := kanban.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case kanban.KindValidation, kanban.KindInvalid:
		status = http.StatusBadRequest
	case kanban.KindNotFound:
		status = http.StatusNotFound
	case kanban.KindRemote:
		status = http.StatusBadGateway
	case kanban.KindFetch:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("path", c.FullPath()), zap.String("kind", string(kind)), zap.Error(err))
	} else {
		zap.L().Info("Request rejected", zap.String("path", c.FullPath()), zap.String("kind", string(kind)), zap.Error(err))
	}

	c.JSON(status, gin.H{"error": kind, "message": kanban.Message(err)})
}
