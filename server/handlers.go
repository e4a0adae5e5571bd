package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/pipeline"
)

// cacheReader is the slice of the store the API reads from.
type cacheReader interface {
	ListTokens(ctx context.Context) ([]models.Token, error)
	ListPrices(ctx context.Context) ([]models.TokenPrice, error)
	ReadRoutes(ctx context.Context, provider *models.Provider) ([]models.RouteRecord, time.Time, error)
	ReadLatestSlippage(ctx context.Context, provider *models.Provider) ([]models.SlippageRecord, error)
}

// fetchStarter triggers background fetch runs.
type fetchStarter interface {
	StartRouteFetch(ctx context.Context, provider models.Provider) error
	StartSlippageFetch(ctx context.Context, provider models.Provider) error
}

type apiHandler struct {
	db     cacheReader
	runner fetchStarter
}

func newAPIHandler(db cacheReader, runner fetchStarter) *apiHandler {
	return &apiHandler{db: db, runner: runner}
}

func (h *apiHandler) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.db.ListTokens(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read tokens")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func (h *apiHandler) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.db.ListPrices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read prices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": prices})
}

func (h *apiHandler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFilter(w, r)
	if !ok {
		return
	}
	routes, fetchedAt, err := h.db.ReadRoutes(r.Context(), provider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read routes")
		return
	}
	resp := map[string]any{"routes": routes}
	if !fetchedAt.IsZero() {
		resp["fetched_at"] = fetchedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *apiHandler) handleSlippage(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFilter(w, r)
	if !ok {
		return
	}
	records, err := h.db.ReadLatestSlippage(r.Context(), provider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read slippage")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// handleRefresh starts a fetch run in the background. The lock is taken
// before responding, so a conflicting run surfaces as 409 immediately.
func (h *apiHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	provider, err := models.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}
	kind := chi.URLParam(r, "kind")

	// The run outlives the request on purpose: a full probe sweep takes
	// far longer than any sane request timeout.
	ctx := context.Background()
	switch kind {
	case "routes":
		err = h.runner.StartRouteFetch(ctx, provider)
	case "slippage":
		err = h.runner.StartSlippageFetch(ctx, provider)
	default:
		writeError(w, http.StatusBadRequest, "kind must be routes or slippage")
		return
	}

	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		writeError(w, http.StatusConflict, "fetch run already in progress")
	case errors.Is(err, pipeline.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "no client configured for provider")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to start fetch run")
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"provider":   provider,
			"kind":       kind,
			"status":     "started",
			"started_at": time.Now().UTC(),
		})
	}
}

// providerFilter parses the optional ?provider= query parameter. The bool
// reports whether the request should proceed.
func providerFilter(w http.ResponseWriter, r *http.Request) (*models.Provider, bool) {
	raw := r.URL.Query().Get("provider")
	if raw == "" {
		return nil, true
	}
	provider, err := models.ParseProvider(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return nil, false
	}
	return &provider, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	// Cached quotes go stale fast, keep intermediaries from serving them.
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
