// Package handlers serves the web companion API and its websocket updates
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/auth"
	"github.com/example/mediatranslate/internal/history"
	"github.com/example/mediatranslate/internal/langsel"
	"github.com/example/mediatranslate/internal/media"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/session"
	"github.com/example/mediatranslate/internal/upload"
	"github.com/example/mediatranslate/internal/workspace"
)

// formMemory is the part of a multipart upload kept in memory; the rest is spooled to disk
const formMemory = 32 << 20

// APIHandler serves the per-client workspace API
type APIHandler struct {
	workspaces *workspace.Registry
	history    *history.Store
	hub        *WebSocketHub
	maxUpload  int64
	log        *zap.SugaredLogger
	now        func() time.Time
}

// NewAPIHandler creates the API handler. maxUpload bounds the request body of an upload.
func NewAPIHandler(workspaces *workspace.Registry, hist *history.Store, hub *WebSocketHub, maxUpload int64, log *zap.SugaredLogger) *APIHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &APIHandler{
		workspaces: workspaces,
		history:    hist,
		hub:        hub,
		maxUpload:  maxUpload,
		log:        log,
		now:        time.Now,
	}
}

// Register adds the API routes to r
func (h *APIHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/formats", h.GetFormats).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/languages", h.GetLanguages).Methods(http.MethodGet)
	api.HandleFunc("/languages/{code}/toggle", h.ToggleLanguage).Methods(http.MethodPost)

	api.HandleFunc("/session", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/session/upload", h.Upload).Methods(http.MethodPost)
	api.HandleFunc("/session/demo", h.Demo).Methods(http.MethodPost)
	api.HandleFunc("/session/reset", h.Reset).Methods(http.MethodPost)

	api.HandleFunc("/result", h.GetResult).Methods(http.MethodGet)
	api.HandleFunc("/result/tab/{tab}", h.SetTab).Methods(http.MethodPost)
	api.HandleFunc("/result/copy/{tab}", h.Copy).Methods(http.MethodPost)
	api.HandleFunc("/result/download/{tab}", h.Download).Methods(http.MethodGet)
	api.HandleFunc("/result/boxes", h.ToggleBoxes).Methods(http.MethodPost)
	api.HandleFunc("/result/voice/{voice}", h.SetVoice).Methods(http.MethodPost)
	api.HandleFunc("/result/play/{lang}", h.Play).Methods(http.MethodPost)

	api.HandleFunc("/history", h.ListHistory).Methods(http.MethodGet)
	api.HandleFunc("/history", h.ClearHistory).Methods(http.MethodDelete)
	api.HandleFunc("/history/{id}", h.DeleteHistoryItem).Methods(http.MethodDelete)

	if h.hub != nil {
		r.HandleFunc("/ws", h.ServeWs)
	}
}

func (h *APIHandler) workspace(r *http.Request) (*workspace.Workspace, bool) {
	id, ok := auth.ClientFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return h.workspaces.Get(id), true
}

// withWorkspace resolves the caller's workspace or fails the request
func (h *APIHandler) withWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := h.workspace(r)
	if !ok {
		sendJSONError(w, "Missing client id", http.StatusUnauthorized)
	}
	return ws, ok
}

// withPresenter resolves the presenter of the caller's result or fails the request
func (h *APIHandler) withPresenter(w http.ResponseWriter, r *http.Request) (*presenter.Presenter, bool) {
	ws, ok := h.withWorkspace(w, r)
	if !ok {
		return nil, false
	}
	p := ws.Presenter()
	if p == nil {
		sendJSONError(w, "No result to show", http.StatusConflict)
		return nil, false
	}
	return p, true
}

type languagesPayload struct {
	Catalog  []langsel.Language `json:"catalog"`
	Selected []string           `json:"selected"`
}

// GetLanguages returns the catalog and the caller's selection
func (h *APIHandler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withWorkspace(w, r)
	if !ok {
		return
	}
	sendJSONData(w, "", languagesPayload{Catalog: langsel.Catalog, Selected: ws.Languages.Codes()}, http.StatusOK)
}

type formatsPayload struct {
	Extensions     []string `json:"extensions"`
	MaxUploadBytes int64    `json:"maxUploadBytes"`
}

// GetFormats lists the accepted file extensions
func (h *APIHandler) GetFormats(w http.ResponseWriter, r *http.Request) {
	sendJSONData(w, "", formatsPayload{Extensions: media.DefaultRegistry.Extensions(), MaxUploadBytes: h.maxUpload}, http.StatusOK)
}

// GetStats reports websocket and workspace counters
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{"workspaces": h.workspaces.Len()}
	if h.hub != nil {
		stats["websocket"] = h.hub.GetStats()
	}
	sendJSONData(w, "", stats, http.StatusOK)
}

// ToggleLanguage adds or removes a target language
func (h *APIHandler) ToggleLanguage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withWorkspace(w, r)
	if !ok {
		return
	}
	code := mux.Vars(r)["code"]
	if err := ws.Languages.Toggle(code); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendJSONData(w, "", languagesPayload{Catalog: langsel.Catalog, Selected: ws.Languages.Codes()}, http.StatusOK)
}

// GetSession returns the caller's session state
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withWorkspace(w, r)
	if !ok {
		return
	}
	sendJSONData(w, "", ws.Machine.State(), http.StatusOK)
}

// Upload starts a session with the uploaded file
func (h *APIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withWorkspace(w, r)
	if !ok {
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formMemory)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendJSONError(w, upload.Message(upload.ErrFileTooLarge, ""), http.StatusRequestEntityTooLarge)
			return
		}
		sendJSONError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendJSONError(w, "No file provided", http.StatusBadRequest)
		return
	}
	diarization, _ := strconv.ParseBool(r.FormValue("enable_diarization"))

	// the machine closes the file once the upload finishes
	err = ws.Machine.Submit(upload.File{Name: header.Filename, Size: header.Size, Content: file}, diarization)
	if errors.Is(err, session.ErrBusy) {
		sendJSONError(w, "A file is already being processed", http.StatusConflict)
		return
	}

	st := ws.Machine.State()
	if st.Phase == session.PhaseUpload && st.Error != "" {
		sendJSONResponse(w, models.APIResponse{Success: false, Error: st.Error, Data: st}, http.StatusUnprocessableEntity)
		return
	}
	h.log.Infow("upload accepted", "filename", header.Filename, "size", header.Size, "diarization", diarization)
	sendJSONData(w, "Processing started", st, http.StatusAccepted)
}

// Demo starts the canned session
func (h *APIHandler) Demo(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withWorkspace(w, r)
	if !ok {
		return
	}
	switch err := ws.Machine.Demo(); {
	case errors.Is(err, session.ErrDemoDisabled):
		sendJSONError(w, "Demo mode is disabled", http.StatusForbidden)
	case errors.Is(err, session.ErrBusy):
		sendJSONError(w, "A file is already being processed", http.StatusConflict)
	case err != nil:
		sendJSONError(w, err.Error(), http.StatusInternalServerError)
	default:
		sendJSONData(w, "Demo started", ws.Machine.State(), http.StatusAccepted)
	}
}

// Reset returns the caller to the upload step
func (h *APIHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withWorkspace(w, r)
	if !ok {
		return
	}
	ws.Machine.Reset()
	sendJSONData(w, "", ws.Machine.State(), http.StatusOK)
}

type resultPayload struct {
	View       presenter.View       `json:"view"`
	Result     interface{}          `json:"result"`
	Boxes      []models.BoundingBox `json:"boxes,omitempty"`
	TotalBoxes int                  `json:"totalBoxes"`
	Speakers   []models.Segment     `json:"speakers,omitempty"`
}

func newResultPayload(p *presenter.Presenter) resultPayload {
	out := resultPayload{View: p.View(), Result: p.Result(), Speakers: p.Speakers()}
	if out.View.ShowBoxes {
		out.Boxes, out.TotalBoxes = p.Boxes()
	} else {
		_, out.TotalBoxes = p.Boxes()
	}
	return out
}

// GetResult returns the presented result
func (h *APIHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	p, ok := h.withPresenter(w, r)
	if !ok {
		return
	}
	sendJSONData(w, "", newResultPayload(p), http.StatusOK)
}

// SetTab activates a result tab
func (h *APIHandler) SetTab(w http.ResponseWriter, r *http.Request) {
	p, ok := h.withPresenter(w, r)
	if !ok {
		return
	}
	if err := p.SetTab(mux.Vars(r)["tab"]); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendJSONData(w, "", p.View(), http.StatusOK)
}

// Copy acknowledges a copy and returns the text for the browser clipboard
func (h *APIHandler) Copy(w http.ResponseWriter, r *http.Request) {
	p, ok := h.withPresenter(w, r)
	if !ok {
		return
	}
	var copied string
	err := p.Copy(mux.Vars(r)["tab"], presenter.ClipboardFunc(func(text string) error {
		copied = text
		return nil
	}))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendJSONData(w, "Copied", map[string]string{"text": copied}, http.StatusOK)
}

// Download sends the text of a tab as txt or docx
func (h *APIHandler) Download(w http.ResponseWriter, r *http.Request) {
	p, ok := h.withPresenter(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = presenter.FormatTXT
	}
	name, data, err := p.Download(mux.Vars(r)["tab"], format)
	switch {
	case errors.Is(err, presenter.ErrUnknownTab), errors.Is(err, presenter.ErrUnknownFormat):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.log.Errorw("download failed", "format", format, "error", err)
		sendJSONError(w, "Failed to build the document", http.StatusInternalServerError)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if format == presenter.FormatDOCX {
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ToggleBoxes flips the bounding box overlay
func (h *APIHandler) ToggleBoxes(w http.ResponseWriter, r *http.Request) {
	p, ok := h.withPresenter(w, r)
	if !ok {
		return
	}
	p.ToggleBoxes()
	sendJSONData(w, "", newResultPayload(p), http.StatusOK)
}

// SetVoice selects the synthesis voice
func (h *APIHandler) SetVoice(w http.ResponseWriter, r *http.Request) {
	p, ok := h.withPresenter(w, r)
	if !ok {
		return
	}
	if err := p.SetVoice(presenter.Voice(mux.Vars(r)["voice"])); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendJSONData(w, "", p.View(), http.StatusOK)
}

// Play starts or stops speaking a tab
func (h *APIHandler) Play(w http.ResponseWriter, r *http.Request) {
	p, ok := h.withPresenter(w, r)
	if !ok {
		return
	}
	switch err := p.Play(mux.Vars(r)["lang"]); {
	case errors.Is(err, presenter.ErrUnknownTab):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, presenter.ErrUndetectedSource):
		sendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, presenter.ErrPlayback):
		sendJSONError(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		sendJSONError(w, err.Error(), http.StatusInternalServerError)
	default:
		sendJSONData(w, "", p.View(), http.StatusAccepted)
	}
}

type historyEntry struct {
	models.HistoryItem
	TimeAgo string `json:"timeAgo"`
}

func (h *APIHandler) historyEntries() []historyEntry {
	items := h.history.List()
	now := h.now()
	out := make([]historyEntry, len(items))
	for i, item := range items {
		out[i] = historyEntry{HistoryItem: item, TimeAgo: history.TimeAgo(item.Timestamp, now)}
	}
	return out
}

// ListHistory returns the recent sessions, newest first
func (h *APIHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	sendJSONData(w, "", h.historyEntries(), http.StatusOK)
}

// ClearHistory removes every history item
func (h *APIHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.history.Clear()
	sendJSONData(w, "History cleared", []historyEntry{}, http.StatusOK)
}

// DeleteHistoryItem removes one history item
func (h *APIHandler) DeleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.history.Remove(id) {
		sendJSONError(w, fmt.Sprintf("History item %s not found", id), http.StatusNotFound)
		return
	}
	sendJSONData(w, "History item removed", h.historyEntries(), http.StatusOK)
}

// HistoryObserver broadcasts history changes to every connection
func (h *APIHandler) HistoryObserver() history.Observer {
	return func(items []models.HistoryItem) {
		if h.hub == nil {
			return
		}
		now := h.now()
		out := make([]historyEntry, len(items))
		for i, item := range items {
			out[i] = historyEntry{HistoryItem: item, TimeAgo: history.TimeAgo(item.Timestamp, now)}
		}
		h.hub.Broadcast(MessageHistory, out)
	}
}

// ServeWs upgrades the connection and sends the caller's current state
func (h *APIHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		http.Error(w, "Missing client id", http.StatusUnauthorized)
		return
	}
	h.hub.ServeWs(w, r, func() []ServerMessage {
		msgs := []ServerMessage{
			newMessage(MessageSession, ws.Machine.State()),
			newMessage(MessageHistory, h.historyEntries()),
		}
		if p := ws.Presenter(); p != nil {
			msgs = append(msgs, newMessage(MessageResult, p.View()))
		}
		return msgs
	})
}
