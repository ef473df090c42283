package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/response"
)

type IngestHandler struct {
	ingestService *app.IngestService
	resourceRepo  *repository.ResourceRepository
	maxFileSize   int64
}

func NewIngestHandler(ingestService *app.IngestService, resourceRepo *repository.ResourceRepository, maxFileSize int64) *IngestHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &IngestHandler{
		ingestService: ingestService,
		resourceRepo:  resourceRepo,
		maxFileSize:   maxFileSize,
	}
}

// Upload accepts a multipart form with repeated "files" fields and runs the
// ingestion pipeline over each.
func (h *IngestHandler) Upload(c *gin.Context) {
	ct := c.GetHeader("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedMedia,
			"use multipart/form-data with field name 'files'")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files provided")
		return
	}

	files := make([]app.IngestFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > h.maxFileSize {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
				"file too large: "+fh.Filename)
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
			return
		}
		files = append(files, app.IngestFile{Name: fh.Filename, Data: data})
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), files)
	if err != nil {
		if err == app.ErrInvalidInput {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files provided")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
		return
	}

	response.OK(c, result)
}

// Recent lists the newest resources with their chunk counts.
func (h *IngestHandler) Recent(c *gin.Context) {
	limit := 12
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	items, err := h.resourceRepo.ListRecent(limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "list recent resources failed")
		return
	}
	response.OK(c, gin.H{"items": items})
}
