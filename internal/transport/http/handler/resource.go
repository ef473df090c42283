package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/repository"
	"docuchat/internal/transport/http/response"
)

type ResourceHandler struct {
	resourceRepo *repository.ResourceRepository
	chunkRepo    *repository.ChunkRepository
}

func NewResourceHandler(resourceRepo *repository.ResourceRepository, chunkRepo *repository.ChunkRepository) *ResourceHandler {
	return &ResourceHandler{resourceRepo: resourceRepo, chunkRepo: chunkRepo}
}

// Get returns one resource's metadata and its live chunk count.
func (h *ResourceHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing resource id")
		return
	}

	resource, err := h.resourceRepo.Get(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "get resource failed")
		return
	}
	if resource == nil {
		response.Error(c, http.StatusNotFound, response.CodeResourceNotFound, "resource not found")
		return
	}
	chunks, err := h.chunkRepo.CountByResourceID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "count chunks failed")
		return
	}
	response.OK(c, gin.H{
		"resource_id": resource.ID,
		"filename":    resource.Filename,
		"created_at":  resource.CreatedAt,
		"chunks":      chunks,
	})
}

// Delete removes one resource and its chunks.
func (h *ResourceHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing resource id")
		return
	}

	deleted, err := h.resourceRepo.Delete(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "delete resource failed")
		return
	}
	if !deleted {
		response.Error(c, http.StatusNotFound, response.CodeResourceNotFound, "resource not found")
		return
	}
	response.OK(c, gin.H{"deleted": 1})
}

// Clear removes every resource and chunk.
func (h *ResourceHandler) Clear(c *gin.Context) {
	removed, err := h.resourceRepo.ClearAll()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "clear resources failed")
		return
	}
	response.OK(c, gin.H{"deleted": removed})
}
