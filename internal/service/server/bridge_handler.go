package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/port"
)

// maxRequestBody caps the JSON body of a download request
const maxRequestBody = 1 << 20

// BridgeHandler serves the bridge operations
type BridgeHandler struct {
	dirs    domain.Directories
	fetcher Fetcher
	storage Storage
	journal port.JournalRepository
	logger  *zap.Logger
}

// NewBridgeHandler creates a new BridgeHandler
func NewBridgeHandler(dirs domain.Directories, fetcher Fetcher, storage Storage, journal port.JournalRepository, logger *zap.Logger) *BridgeHandler {
	return &BridgeHandler{
		dirs:    dirs,
		fetcher: fetcher,
		storage: storage,
		journal: journal,
		logger:  logger,
	}
}

// DownloadRequest is the JSON body of POST /download
type DownloadRequest struct {
	URL     string                  `json:"url" validate:"required"`
	URI     string                  `json:"uri" validate:"required"`
	Options *domain.DownloadOptions `json:"options"`
}

// ErrorResponse is the body of a rejected call
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Fields  FieldErrors `json:"fields,omitempty"`
}

// HandleConstants returns the managed directory constants
func (h *BridgeHandler) HandleConstants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dirs.Constants())
}

// HandleDownload runs one fetch
func (h *BridgeHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	var body DownloadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "ERR_BAD_REQUEST", Message: "invalid JSON body: " + err.Error()})
		return
	}

	if err := Validate(body); err != nil {
		resp := ErrorResponse{Code: "ERR_BAD_REQUEST", Message: err.Error()}
		var fields FieldErrors
		if errors.As(err, &fields) {
			resp.Fields = fields
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	req := domain.DownloadRequest{Source: body.URL, Destination: body.URI}
	if body.Options != nil {
		req.Options = *body.Options
	}

	result, err := h.fetcher.Fetch(r.Context(), req)
	if err != nil {
		writeJSON(w, statusForError(err), ErrorResponse{Code: domain.ErrorCode(err), Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandlePermissions reports read/write access for ?uri=
func (h *BridgeHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	dest, err := domain.ParseDestination(r.URL.Query().Get("uri"))
	if err == nil && !dest.IsLocal() {
		err = domain.UnsupportedScheme(r.URL.Query().Get("uri"), nil)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: domain.ErrorCode(err), Message: err.Error()})
		return
	}

	perm := h.storage.Permissions(dest.Path)
	writeJSON(w, http.StatusOK, map[string]bool{
		"read":  perm.CanRead(),
		"write": perm.CanWrite(),
	})
}

// HandleStorage reports disk usage of the document directory
func (h *BridgeHandler) HandleStorage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.storage.GetDiskUsage()
	if err != nil {
		h.logger.Error("failed to read disk usage", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: domain.CodeIO, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalBytes": usage.Total,
		"freeBytes":  usage.Free,
		"usedBytes":  usage.Used,
		"usedPct":    usage.UsedPct,
	})
}

type historyEntry struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Destination  string `json:"destination"`
	Kind         string `json:"kind"`
	Status       int    `json:"status,omitempty"`
	MD5          string `json:"md5,omitempty"`
	BytesWritten int64  `json:"bytesWritten"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	CreatedAt    string `json:"createdAt"`
}

// HandleHistory lists recent journal entries
func (h *BridgeHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "ERR_JOURNAL_DISABLED", Message: "fetch journal is disabled"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "ERR_BAD_REQUEST", Message: "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	entries, err := h.journal.Recent(limit)
	if err != nil {
		h.logger.Error("failed to read journal", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: domain.CodeIO, Message: "failed to read journal"})
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryEntry(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHistoryEntry returns one journal entry by request ID
func (h *BridgeHandler) HandleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "ERR_JOURNAL_DISABLED", Message: "fetch journal is disabled"})
		return
	}

	id := r.PathValue("id")
	entry, err := h.journal.Get(id)
	if errors.Is(err, port.ErrEntryNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "ERR_ENTRY_NOT_FOUND", Message: "no journal entry " + id})
		return
	}
	if err != nil {
		h.logger.Error("failed to read journal entry", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: domain.CodeIO, Message: "failed to read journal"})
		return
	}

	writeJSON(w, http.StatusOK, toHistoryEntry(entry))
}

func toHistoryEntry(e *domain.JournalEntry) historyEntry {
	return historyEntry{
		ID:           e.ID,
		Source:       e.Source,
		Destination:  e.Destination,
		Kind:         e.Kind,
		Status:       e.HTTPStatus,
		MD5:          e.MD5,
		BytesWritten: e.BytesWritten,
		ErrorCode:    e.ErrorCode,
		ErrorMessage: e.ErrorMessage,
		DurationMs:   e.DurationMs,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedScheme):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDirectoryNotFound), errors.Is(err, domain.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
