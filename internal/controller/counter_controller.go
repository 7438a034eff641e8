package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/saintber/extensions/internal/service"
	"github.com/saintber/extensions/pkg/di"
)

var errNoScope = errors.New("request has no service scope")

// CounterController serves the counter endpoints. The CounterService is
// resolved from the request's DI scope, so every request gets its own.
type CounterController struct{}

func NewCounterController() *CounterController {
	return &CounterController{}
}

func (h *CounterController) service(r *http.Request) (*service.CounterService, error) {
	scope, ok := di.ScopeFromContext(r.Context())
	if !ok {
		return nil, errNoScope
	}
	return di.Resolve[*service.CounterService](scope)
}

func (h *CounterController) List(w http.ResponseWriter, r *http.Request) {
	svc, err := h.service(r)
	if err != nil {
		writeError(w, err)
		return
	}

	counters, err := svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCounters(counters))
}

func (h *CounterController) Get(w http.ResponseWriter, r *http.Request) {
	svc, err := h.service(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := svc.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCounter(c))
}

func (h *CounterController) Increment(w http.ResponseWriter, r *http.Request) {
	var req IncrementRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	svc, err := h.service(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := svc.Increment(r.Context(), chi.URLParam(r, "name"), req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCounter(c))
}

func (h *CounterController) IncrementMany(w http.ResponseWriter, r *http.Request) {
	var req IncrementManyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	svc, err := h.service(r)
	if err != nil {
		writeError(w, err)
		return
	}

	counters, err := svc.IncrementMany(r.Context(), req.Names, req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCounters(counters))
}

func (h *CounterController) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	svc, err := h.service(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := svc.Reset(r.Context(), req.Names); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
