package admin

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"
)

// Handler exposes Service over plain HTTP. No third-party router is wired
// here: the pack carries no HTTP routing library, so a bare
// http.ServeMux is the idiomatic fallback rather than hand-rolling one.
type Handler struct {
	svc     *Service
	mux     *http.ServeMux
	limiter *rate.Limiter
}

// NewHandler builds an admin HTTP handler. Requests are throttled by a
// shared token bucket (ratePerSec, burst == ratePerSec) the same way the
// notifier and logging services throttle outbound traffic; ratePerSec <= 0
// disables throttling.
func NewHandler(svc *Service, ratePerSec int) *Handler {
	h := &Handler{svc: svc, mux: http.NewServeMux()}
	if ratePerSec > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	h.mux.HandleFunc("/tasks", h.handleList)
	h.mux.HandleFunc("/tasks/", h.handleTaskByKey)
	h.mux.HandleFunc("/handlers/", h.handleHandlerByKey)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, h.svc.List(r.Context()))
}

// handleTaskByKey dispatches /tasks/{key}[/action] for query/cancel/pause/resume/schedule.
func (h *Handler) handleTaskByKey(w http.ResponseWriter, r *http.Request) {
	key, action := splitKeyAction(r.URL.Path, "/tasks/")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		writeEnvelope(w, h.svc.Query(r.Context(), key))
	case "cancel":
		writeEnvelope(w, h.svc.Cancel(r.Context(), key))
	case "pause":
		writeEnvelope(w, h.svc.Pause(r.Context(), key))
	case "resume":
		writeEnvelope(w, h.svc.Resume(r.Context(), key))
	case "schedule":
		writeEnvelope(w, h.svc.Schedule(r.Context(), key))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleHandlerByKey(w http.ResponseWriter, r *http.Request) {
	key, action := splitKeyAction(r.URL.Path, "/handlers/")
	if key == "" || action != "" {
		http.NotFound(w, r)
		return
	}
	writeEnvelope(w, h.svc.QueryHandler(r.Context(), key))
}

func splitKeyAction(path, prefix string) (key, action string) {
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:]
		}
	}
	return rest, ""
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Code)
	_ = json.NewEncoder(w).Encode(env)
}
