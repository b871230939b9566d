package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/deploystack/internal/catalog"
)

func TestCatalogList(t *testing.T) {
	cat, err := catalog.Load("")
	require.NoError(t, err)
	h := NewCatalog(cat)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/v1/catalog", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Applications []struct {
			Type             string `json:"type"`
			InternalPort     int    `json:"internalPort"`
			PasswordRequired bool   `json:"passwordRequired"`
		} `json:"applications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Applications, 2)

	byType := map[string]int{}
	for _, app := range body.Applications {
		byType[app.Type] = app.InternalPort
	}
	assert.Equal(t, 5432, byType["postgres"])
	assert.Equal(t, 6379, byType["redis"])
}
