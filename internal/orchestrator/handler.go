package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"rendition-server/internal/asset"
	"rendition-server/internal/platform/metrics"
)

const (
	// UploadField is the multipart form field carrying the video file.
	UploadField = "video"

	// DefaultMaxUploadBytes caps the request body of an upload.
	DefaultMaxUploadBytes int64 = 2 << 30

	multipartMemory = 32 << 20
)

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Service  *Service
	Store    *asset.Store
	Specs    []RenditionSpec
	Log      *slog.Logger
	Metrics  *metrics.Metrics // may be nil
	MaxBytes int64

	// JobContext is the parent of every transcode job. Jobs outlive the
	// upload request that started them, so it is not derived from the
	// request. Defaults to context.Background().
	JobContext context.Context
}

// Handler exposes the upload and job endpoints using go-chi.
type Handler struct {
	svc      *Service
	store    *asset.Store
	specs    []RenditionSpec
	log      *slog.Logger
	metrics  *metrics.Metrics
	maxBytes int64
	jobCtx   context.Context
}

// NewHandler returns a Handler for cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxUploadBytes
	}
	if cfg.JobContext == nil {
		cfg.JobContext = context.Background()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Handler{
		svc:      cfg.Service,
		store:    cfg.Store,
		specs:    cfg.Specs,
		log:      cfg.Log,
		metrics:  cfg.Metrics,
		maxBytes: cfg.MaxBytes,
		jobCtx:   cfg.JobContext,
	}
}

type renditionLink struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type uploadResponse struct {
	Success    bool            `json:"success"`
	AssetID    asset.ID        `json:"assetId"`
	Renditions []renditionLink `json:"renditions"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Rendition string `json:"rendition,omitempty"`
}

// Upload handles POST /upload.
// Body: multipart form with the video file in field "video".
// The response is written once every rendition has been attempted.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "upload too large"})
			return
		}
		h.log.Debug("invalid upload body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no video uploaded"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no video uploaded"})
		return
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		h.log.Warn("upload sniffing failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no video uploaded"})
		return
	}
	if !strings.HasPrefix(mtype.String(), "video/") {
		h.log.Info("upload rejected",
			slog.String("filename", header.Filename),
			slog.String("detected", mtype.String()))
		writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{Error: "uploaded file is not a video"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.log.Error("upload rewind failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "upload failed"})
		return
	}

	a, err := h.store.Ingest(file, header.Filename)
	if err != nil {
		h.log.Error("ingest failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "upload failed"})
		return
	}
	h.metrics.IncUploads()
	h.log.Info("upload stored",
		slog.String("asset_id", a.ID.String()),
		slog.String("filename", header.Filename),
		slog.Int64("bytes", header.Size),
		slog.String("detected", mtype.String()))

	descriptors, err := h.svc.Transcode(h.jobCtx, a.ID, a.SourcePath, h.specs)
	if err != nil {
		resp := errorResponse{Error: "transcoding failed"}
		var failed *TranscodeFailedError
		if errors.As(err, &failed) {
			resp.Rendition = failed.Label
		} else {
			h.log.Error("transcode job not started",
				slog.String("asset_id", a.ID.String()),
				slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp := uploadResponse{Success: true, AssetID: a.ID, Renditions: make([]renditionLink, 0, len(descriptors))}
	for _, d := range descriptors {
		resp.Renditions = append(resp.Renditions, renditionLink{Quality: d.Label, URL: VideoURL(a.ID, d.Label)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /assets/{asset_id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := asset.ID(chi.URLParam(r, "asset_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	job, ok := h.svc.Repository().GetJob(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "asset not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// VideoURL is the streaming path of a rendition.
func VideoURL(id asset.ID, label string) string {
	return "/video/" + url.PathEscape(id.String()) + "/" + url.PathEscape(label)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
