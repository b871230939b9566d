package handler

import (
	"net/http"

	"github.com/edvin/deploystack/internal/api/response"
	"github.com/edvin/deploystack/internal/catalog"
)

type Catalog struct {
	catalog *catalog.Catalog
}

func NewCatalog(cat *catalog.Catalog) *Catalog {
	return &Catalog{catalog: cat}
}

type catalogEntry struct {
	Type             string `json:"type"`
	Description      string `json:"description,omitempty"`
	DefaultImage     string `json:"defaultImage,omitempty"`
	InternalPort     int    `json:"internalPort"`
	PasswordRequired bool   `json:"passwordRequired"`
}

// List returns the application types available for deployment.
func (h *Catalog) List(w http.ResponseWriter, r *http.Request) {
	types := h.catalog.Types()
	entries := make([]catalogEntry, 0, len(types))
	for _, t := range types {
		app, ok := h.catalog.Lookup(t)
		if !ok {
			continue
		}
		entries = append(entries, catalogEntry{
			Type:             app.Type,
			Description:      app.Description,
			DefaultImage:     app.DefaultImage,
			InternalPort:     app.InternalPort,
			PasswordRequired: app.PasswordRequired,
		})
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"applications": entries})
}
