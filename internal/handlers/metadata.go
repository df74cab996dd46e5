package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sagoresarker/edge-speed-compare/internal/metadata"
	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) (models.Metadata, error)
}

type MetadataHandler struct {
	resolver MetadataResolver
}

func NewMetadataHandler(resolver MetadataResolver) *MetadataHandler {
	return &MetadataHandler{resolver: resolver}
}

// Handle serves GET /api/metadata?url=<target>.
func (h *MetadataHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	md, err := h.resolver.Resolve(r.Context(), target)
	if err != nil {
		if errors.Is(err, metadata.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "Invalid URL")
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to resolve metadata")
		return
	}

	writeData(w, md)
}
