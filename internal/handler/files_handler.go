package handler

import (
	"fmt"
	"io"
	"net/http"

	"pats-cloud/internal/services"
	"pats-cloud/internal/storage"
	"pats-cloud/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// maxUploadFiles caps one multipart request, matching the classic client.
const maxUploadFiles = 20

type FilesHandler struct {
	files *services.FileService
}

func NewFilesHandler(files *services.FileService) *FilesHandler {
	return &FilesHandler{files: files}
}

func (h *FilesHandler) List(c *gin.Context) {
	folder := storage.SanitizeFolder(c.Query("folder"))
	files, err := h.files.List(folder)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "folder": folder})
}

func (h *FilesHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	parts := form.File["files"]
	if len(parts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}
	if len(parts) > maxUploadFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d files per upload", maxUploadFiles)})
		return
	}

	folder := c.Query("folder")
	uploaded := make([]gin.H, 0, len(parts))
	for _, part := range parts {
		src, err := part.Open()
		if err != nil {
			writeError(c, err)
			return
		}
		info, err := h.files.Save(folder, part.Filename, part.Size, src)
		src.Close()
		if err != nil {
			writeError(c, err)
			return
		}
		uploaded = append(uploaded, gin.H{"name": info.Name, "size": info.Size})
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "uploaded": uploaded, "mirrored": h.files.Mirrored()})
}

// Download serves a file whole, as an attachment.
func (h *FilesHandler) Download(c *gin.Context) {
	f, st, err := h.files.Open(c.Query("folder"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.Name()))
	c.DataFromReader(http.StatusOK, st.Size(), services.ContentTypeFor(st.Name()), f, nil)
}

// Stream serves a file with byte-range support for resumable downloads.
func (h *FilesHandler) Stream(c *gin.Context) {
	f, st, err := h.files.Open(c.Query("folder"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	size := st.Size()
	contentType := services.ContentTypeFor(st.Name())
	c.Header("Accept-Ranges", "bytes")

	rng, err := services.ParseRange(c.GetHeader("Range"), size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.JSON(http.StatusRequestedRangeNotSatisfiable, gin.H{"error": "Range not satisfiable"})
		return
	}
	if rng == nil {
		c.DataFromReader(http.StatusOK, size, contentType, f, nil)
		return
	}

	if _, err := f.Seek(rng.Start, 0); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
	c.DataFromReader(http.StatusPartialContent, rng.Length(), contentType, io.LimitReader(f, rng.Length()), nil)
}

func (h *FilesHandler) Delete(c *gin.Context) {
	if err := h.files.Delete(c.Query("folder"), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *FilesHandler) ListFolders(c *gin.Context) {
	folders, err := h.files.ListFolders()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h *FilesHandler) CreateFolder(c *gin.Context) {
	var req httpdto.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid folder name"})
		return
	}
	name, err := h.files.CreateFolder(req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": name})
}

func (h *FilesHandler) Storage(c *gin.Context) {
	usage, err := h.files.DiskUsage()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// Health answers liveness probes and checks the upload root is writable.
func (h *FilesHandler) Health(c *gin.Context) {
	if err := h.files.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
}

func (h *FilesHandler) CloudStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.files.Mirrored()})
}
