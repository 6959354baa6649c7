package tasks

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	authapi "tasknest/internal/auth/api"
)

const (
	maxTitleLen  = 250
	maxBodyBytes = 64 << 10
)

// Handler serves the list and task endpoints. Every route expects the
// caller to have passed the access-token gate already; the request
// context carries the authenticated user id.
type Handler struct {
	log   *slog.Logger
	store Store
}

// NewHandler constructs a tasks Handler.
func NewHandler(log *slog.Logger, store Store) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("tasks: nil store")
	}
	return &Handler{log: log, store: store}, nil
}

// Register wires task routes onto the provided mux, wrapped by the
// given auth middleware.
func (h *Handler) Register(mux *http.ServeMux, gate func(http.Handler) http.Handler) {
	if h == nil || mux == nil {
		return
	}
	if gate == nil {
		gate = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("/lists", gate(http.HandlerFunc(h.handleLists)))
	mux.Handle("/lists/{listID}", gate(http.HandlerFunc(h.handleList)))
	mux.Handle("/lists/{listID}/tasks", gate(http.HandlerFunc(h.handleTasks)))
	mux.Handle("/lists/{listID}/tasks/{taskID}", gate(http.HandlerFunc(h.handleTask)))
}

type titleRequest struct {
	Title string `json:"title"`
}

type taskPatchRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// ---- /lists ----

func (h *Handler) handleLists(w http.ResponseWriter, r *http.Request) {
	userID, ok := authapi.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	switch r.Method {
	case http.MethodGet:
		lists, err := h.store.ListsByUser(r.Context(), userID)
		if err != nil {
			h.serverError(w, "tasks.lists.get.fail", err)
			return
		}
		h.writeJSON(w, http.StatusOK, lists)

	case http.MethodPost:
		title, ok := h.decodeTitle(w, r)
		if !ok {
			return
		}
		list, err := h.store.CreateList(r.Context(), CreateListInput{
			UserID: userID,
			Title:  title,
			Now:    time.Now().UTC(),
		})
		if err != nil {
			h.serverError(w, "tasks.lists.create.fail", err)
			return
		}
		h.writeJSON(w, http.StatusCreated, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := authapi.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	listID := r.PathValue("listID")

	switch r.Method {
	case http.MethodGet:
		list, err := h.store.GetList(r.Context(), listID, userID)
		if err != nil {
			h.storeError(w, "tasks.list.get.fail", err)
			return
		}
		h.writeJSON(w, http.StatusOK, list)

	case http.MethodPatch:
		title, ok := h.decodeTitle(w, r)
		if !ok {
			return
		}
		list, err := h.store.UpdateListTitle(r.Context(), listID, userID, title)
		if err != nil {
			h.storeError(w, "tasks.list.update.fail", err)
			return
		}
		h.writeJSON(w, http.StatusOK, list)

	case http.MethodDelete:
		if err := h.store.DeleteList(r.Context(), listID, userID); err != nil {
			h.storeError(w, "tasks.list.delete.fail", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ---- /lists/{listID}/tasks ----

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	list, ok := h.resolveList(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := h.store.TasksByList(r.Context(), list.ID)
		if err != nil {
			h.serverError(w, "tasks.tasks.get.fail", err)
			return
		}
		h.writeJSON(w, http.StatusOK, items)

	case http.MethodPost:
		title, ok := h.decodeTitle(w, r)
		if !ok {
			return
		}
		task, err := h.store.CreateTask(r.Context(), CreateTaskInput{
			ListID: list.ID,
			Title:  title,
			Now:    time.Now().UTC(),
		})
		if err != nil {
			h.serverError(w, "tasks.tasks.create.fail", err)
			return
		}
		h.writeJSON(w, http.StatusCreated, task)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleTask(w http.ResponseWriter, r *http.Request) {
	list, ok := h.resolveList(w, r)
	if !ok {
		return
	}
	taskID := r.PathValue("taskID")

	switch r.Method {
	case http.MethodGet:
		task, err := h.store.GetTask(r.Context(), taskID, list.ID)
		if err != nil {
			h.storeError(w, "tasks.task.get.fail", err)
			return
		}
		h.writeJSON(w, http.StatusOK, task)

	case http.MethodPatch:
		var req taskPatchRequest
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
		upd := TaskUpdate{Completed: req.Completed}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" || len(title) > maxTitleLen {
				h.writeError(w, http.StatusBadRequest, "invalid_request", "title must be 1-250 characters")
				return
			}
			upd.Title = &title
		}
		if upd.Title == nil && upd.Completed == nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "nothing to update")
			return
		}
		task, err := h.store.UpdateTask(r.Context(), taskID, list.ID, upd)
		if err != nil {
			h.storeError(w, "tasks.task.update.fail", err)
			return
		}
		h.writeJSON(w, http.StatusOK, task)

	case http.MethodDelete:
		if err := h.store.DeleteTask(r.Context(), taskID, list.ID); err != nil {
			h.storeError(w, "tasks.task.delete.fail", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ---- helpers ----

// resolveList loads the list named in the path, scoped to the caller.
// A missing list and someone else's list are both a 404.
func (h *Handler) resolveList(w http.ResponseWriter, r *http.Request) (List, bool) {
	userID, ok := authapi.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return List{}, false
	}
	list, err := h.store.GetList(r.Context(), r.PathValue("listID"), userID)
	if err != nil {
		h.storeError(w, "tasks.list.resolve.fail", err)
		return List{}, false
	}
	return list, true
}

func (h *Handler) decodeTitle(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req titleRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return "", false
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > maxTitleLen {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "title must be 1-250 characters")
		return "", false
	}
	return title, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

func (h *Handler) storeError(w http.ResponseWriter, event string, err error) {
	if IsNotFound(err) {
		h.writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	h.serverError(w, event, err)
}

func (h *Handler) serverError(w http.ResponseWriter, event string, err error) {
	h.log.Error(event, "err", err)
	h.writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}
