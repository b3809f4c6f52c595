package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter() *chi.Mux {
	router := chi.NewRouter()
	NewHandler(zerolog.Nop()).RegisterRoutes(router)
	return router
}

func TestHandleClassify(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/risk/classify?descriptor=safe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stability_seeking", resp["tier"])
	assert.Equal(t, "Stability Seeking", resp["tier_label"])
	require.Contains(t, resp, "guideline")
}

func TestHandleClassifyNumericScore(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/risk/classify?descriptor=85", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "aggressive", resp["tier"])
}

func TestHandleClassifyMissingDescriptor(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/risk/classify", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListTiers(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/risk/tiers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tiers []map[string]interface{} `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tiers, 5)
}
