package handler

import (
	"net/http"
	"strconv"

	"pats-cloud/internal/services"
	"pats-cloud/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	chunks *services.ChunkService
}

func NewUploadHandler(chunks *services.ChunkService) *UploadHandler {
	return &UploadHandler{chunks: chunks}
}

func (h *UploadHandler) Init(c *gin.Context) {
	var req httpdto.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	uploadID, err := h.chunks.Init(req.Filename, req.Size, req.ChunkSize, req.TotalChunks, req.Folder)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadId": uploadID})
}

func (h *UploadHandler) Chunk(c *gin.Context) {
	uploadID := c.Query("uploadId")
	index, err := strconv.Atoi(c.Query("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chunk index"})
		return
	}
	size, err := h.chunks.Put(uploadID, index, c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "index": index, "size": size})
}

func (h *UploadHandler) Complete(c *gin.Context) {
	var req httpdto.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UploadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing uploadId"})
		return
	}
	info, err := h.chunks.Complete(req.UploadID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"file":     gin.H{"name": info.Name, "size": info.Size},
		"mirrored": h.chunks.Mirrored(),
	})
}

// Abort always reports success, even for unknown or already-aborted
// sessions.
func (h *UploadHandler) Abort(c *gin.Context) {
	h.chunks.Abort(c.Param("uploadId"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
