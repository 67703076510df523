package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zhanyysh/Chat02/internal/models"
)

// UploadHandler is the attachment collaborator: it stores a blob and returns
// an opaque {url, kind} descriptor for message submission. The core only
// relays these descriptors.
type UploadHandler struct {
	Dir string
}

func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing file"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	name := uuid.New().String() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.Dir, name)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed store file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":  "/uploads/" + name,
		"kind": kindForExt(ext),
	})
}

func kindForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return models.KindImage
	case ".mp4", ".webm", ".mov", ".avi", ".mkv":
		return models.KindVideo
	default:
		return models.KindFile
	}
}
