// Package httpapi is the thin HTTP adapter of §6/§4.9: it translates the
// route table onto Engine calls and maps engine errors back to status
// codes. Per §1 this layer is an external collaborator — it carries no
// lifecycle logic of its own and is not subject to the core's invariant
// tests.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nholding/tradeflow/internal/domain"
	"github.com/nholding/tradeflow/internal/engine"
)

// NewRouter builds the chi router implementing the route table of §6.
func NewRouter(e *engine.Engine, log *zap.Logger) http.Handler {
	h := &handler{engine: e, log: log}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
	}))

	r.Get("/hello", h.hello)
	r.Post("/trade", h.createTrade)
	r.Get("/trade", h.listTrades)
	r.Get("/trade/{id}", h.getStatus)
	r.Delete("/trade/{id}", h.cancelTrade)
	r.Get("/trade/{id}/details", h.getDetails)
	r.Put("/trade/{id}/details", h.updateTrade)
	r.Post("/trade/{id}/submit", h.submit)
	r.Post("/trade/{id}/approve", h.approve)
	r.Post("/trade/{id}/book", h.book)
	r.Post("/trade/{id}/send", h.send)
	r.Get("/trade/{id}/history", h.getHistory)
	r.Get("/trade/{id}/diff", h.diff)

	return r
}

type handler struct {
	engine *engine.Engine
	log    *zap.Logger
}

// requestID stamps every response with an X-Request-Id header, echoing the
// caller's value or generating one if the caller didn't supply one. The id
// is not attached to log lines.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (h *handler) hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "hello"})
}

func (h *handler) tradeID(w http.ResponseWriter, r *http.Request) (domain.TradeID, bool) {
	id, err := domain.ParseTradeID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

func (h *handler) userID(r *http.Request) string {
	if u := r.Header.Get("X-User-Id"); u != "" {
		return u
	}
	return "unknown"
}

func (h *handler) createTrade(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID  string      `json:"userId"`
		Details detailsWire `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	details, err := body.Details.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.engine.CreateTrade(body.UserID, details)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tradeId": id.String()})
}

func (h *handler) listTrades(w http.ResponseWriter, r *http.Request) {
	sorted, _ := strconv.ParseBool(r.URL.Query().Get("sort"))
	ids, err := h.engine.ListTrades(sorted)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	state, err := h.engine.GetStatus(id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
}

func (h *handler) cancelTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	if err := h.engine.CancelTrade(h.userID(r), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	details, err := h.engine.GetDetails(id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromDomain(details))
}

func (h *handler) updateTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	var wire detailsWire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	details, err := wire.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.engine.Update(h.userID(r), id, details); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	if err := h.engine.Submit(h.userID(r), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	if err := h.engine.ApproveTrade(h.userID(r), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) book(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	if err := h.engine.BookTrade(h.userID(r), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) send(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	if err := h.engine.SendToCounterparty(h.userID(r), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	history, err := h.engine.GetHistory(id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	out := make([]eventWire, len(history))
	for i, ev := range history {
		out[i] = fromEvent(ev)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) diff(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}
	v1, err1 := strconv.ParseUint(r.URL.Query().Get("v1"), 10, 64)
	v2, err2 := strconv.ParseUint(r.URL.Query().Get("v2"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "v1 and v2 must be integers")
		return
	}

	d, err := h.engine.Diff(id, v1, v2)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromDiff(d))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps an engine error to the status code table of §6/§7.
func (h *handler) writeEngineError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *domain.NotFoundError:
		writeError(w, http.StatusNotFound, err.Error())
	case *domain.InvalidTransitionError:
		writeError(w, http.StatusConflict, err.Error())
	case *domain.ValidationError:
		writeError(w, http.StatusBadRequest, err.Error())
	case *domain.BadVersionError:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("unexpected engine error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
