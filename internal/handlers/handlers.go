package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Brownie44l1/stethoscope-api/internal/metrics"
	"github.com/Brownie44l1/stethoscope-api/internal/model"
	"github.com/Brownie44l1/stethoscope-api/internal/store"
	"github.com/Brownie44l1/stethoscope-api/internal/worker"
)

// DefaultMaxUploadSize is the multipart limit when none is configured.
const DefaultMaxUploadSize = 10 << 20

// Submitter queues a prediction and returns a one-shot result channel.
type Submitter interface {
	Submit(ctx context.Context, audioPath string) (<-chan model.Result, error)
}

// StateReporter exposes the classifier lifecycle for health checks.
type StateReporter interface {
	State() model.State
}

type Handler struct {
	runner        Submitter
	models        StateReporter
	store         *store.Store
	logger        *slog.Logger
	metrics       *metrics.Metrics
	maxUploadSize int64
}

func NewHandler(runner Submitter, models StateReporter, st *store.Store, logger *slog.Logger, m *metrics.Metrics, maxUploadSize int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &Handler{
		runner:        runner,
		models:        models,
		store:         st,
		logger:        logger,
		metrics:       m,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the API mux with CORS, request ids, and metrics applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.wrap("/health", h.Health))
	mux.HandleFunc("/labels", h.wrap("/labels", h.Labels))
	mux.HandleFunc("/predict", h.wrap("/predict", h.Predict))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (h *Handler) wrap(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return enableCORS(withRequestID(h.withMetrics(endpoint, next)))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  h.models.State().String(),
	})
}

func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"labels":               model.Labels.Names(),
		"confidence_threshold": model.ConfidenceThreshold,
	})
}

// Predict classifies an uploaded WAV file sent as multipart field "audio".
// With ?save=true the spectrogram of a completed prediction is persisted.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger := h.logger.With(slog.String("request_id", requestID(r.Context())))

	save := false
	if v := r.URL.Query().Get("save"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "Invalid save parameter", http.StatusBadRequest)
			return
		}
		save = parsed
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "No audio file provided. Use 'audio' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".wav") {
		http.Error(w, "Unsupported file type. Upload a .wav recording", http.StatusBadRequest)
		return
	}

	logger.Info("Received file", slog.String("filename", name), slog.Int64("size", header.Size))

	dir, path, err := spool(file, name)
	if err != nil {
		logger.Error("Failed to store upload", slog.String("error", err.Error()))
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	ch, err := h.runner.Submit(r.Context(), path)
	if err != nil {
		os.RemoveAll(dir)
		switch {
		case errors.Is(err, worker.ErrQueueFull):
			http.Error(w, "Too many pending predictions", http.StatusTooManyRequests)
		case errors.Is(err, worker.ErrClosed):
			http.Error(w, "Service shutting down", http.StatusServiceUnavailable)
		default:
			http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
		}
		return
	}

	var res model.Result
	select {
	case res = <-ch:
		os.RemoveAll(dir)
	case <-r.Context().Done():
		// The job still runs; clean up once it is done with the file.
		go func() {
			<-ch
			os.RemoveAll(dir)
		}()
		logger.Warn("Client went away before prediction finished", slog.String("filename", name))
		return
	}

	resp := res.Response()
	if save && res.HasPrediction() {
		saved, err := h.store.Save(name, res.Label, res.Spectrogram)
		if err != nil {
			logger.Error("Failed to save spectrogram", slog.String("error", err.Error()))
			http.Error(w, "Failed to save spectrogram", http.StatusInternalServerError)
			return
		}
		resp.SavedTo = saved
	}

	h.writeJSON(w, statusFor(res.Outcome), resp)
}

func statusFor(o model.Outcome) int {
	switch o {
	case model.OutcomeModelUnavailable:
		return http.StatusServiceUnavailable
	case model.OutcomeProcessingFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

// spool copies an upload into a private temp dir, keeping its base name.
func spool(src io.Reader, name string) (string, string, error) {
	dir, err := os.MkdirTemp("", "stethoscope-upload-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return dir, path, nil
}

// writeJSON encodes v before sending any header, so a value that cannot be
// encoded becomes a logged 500 instead of an empty response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode response", slog.Int("status", status), slog.String("error", err.Error()))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Warn("Failed to write response", slog.String("error", err.Error()))
	}
}
