package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pai-smart-go/internal/apperr"
)

func (a *App) handleValidateDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Validation("missing file field"))
		return
	}
	if errs := a.pipeline.Validate(fileHeader.Filename, fileHeader.Size); len(errs) > 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "errors": errs})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (a *App) handleUploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Validation("missing file field"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperr.Internal("failed to open uploaded file", err))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		respondError(c, apperr.Internal("failed to read uploaded file", err))
		return
	}

	userID := userIDFromContext(c)
	documentID := uuid.NewString()

	doc, err := a.pipeline.Ingest(c.Request.Context(), documentID, fileHeader.Filename, raw, userID, "", false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, doc)
}

func (a *App) handleUploadProgress(c *gin.Context) {
	id := c.Param("id")
	progress, ok := a.pipeline.Progress(id)
	if !ok {
		respondError(c, apperr.NotFound("no progress recorded for this document id"))
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (a *App) handleListDocuments(c *gin.Context) {
	userID := userIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := a.pipeline.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (a *App) handleGetDocument(c *gin.Context) {
	doc, err := a.pipeline.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (a *App) handleDeleteDocument(c *gin.Context) {
	if err := a.pipeline.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// userIDFromContext reads a "user_id" value set upstream by an auth
// middleware, defaulting to 0 (anonymous) since this engine has none wired
// in yet — DocumentMetadata.UserID still exists for whichever one lands.
func userIDFromContext(c *gin.Context) uint {
	v, ok := c.Get("user_id")
	if !ok {
		return 0
	}
	id, ok := v.(uint)
	if !ok {
		return 0
	}
	return id
}
