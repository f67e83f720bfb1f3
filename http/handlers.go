package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"obesitycheck/ml"
	"obesitycheck/predictor"
)

//go:embed templates/form.html
var templateFS embed.FS

var formPage = template.Must(template.ParseFS(templateFS, "templates/form.html"))

const defaultHistoryLimit = 20

type handlers struct {
	svc     *predictor.Service
	logger  *zap.Logger
	preview *PreviewHub
}

// RegisterHandlers mounts the form, the JSON API and the preview socket on
// mux. The returned hub tracks open preview connections.
func RegisterHandlers(mux *http.ServeMux, svc *predictor.Service, logger *zap.Logger) *PreviewHub {
	h := &handlers{svc: svc, logger: logger, preview: NewPreviewHub(svc, logger)}

	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /{$}", h.handleFormSubmit)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("POST /api/encode", h.handleEncode)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/labels", h.handleLabels)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	mux.HandleFunc("GET /api/ws/predict", h.preview.HandleWebSocket)
	return h.preview
}

type errorBody struct {
	Error  string                 `json:"error"`
	Fields []predictor.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *predictor.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ml.ErrUnknownCategory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ml.ErrMissingArtifact):
		return http.StatusServiceUnavailable
	case errors.Is(err, predictor.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorPayload(err error) errorBody {
	body := errorBody{Error: err.Error()}
	var verr *predictor.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	return body
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorPayload(err))
}

// decodeForm reads a JSON form. Fields left out stay zero, so missing
// answers are reported by validation.
func decodeForm(r *http.Request) (predictor.Form, error) {
	var f predictor.Form
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return f, err
		}
		return f, &predictor.ValidationError{Fields: []predictor.FieldError{{Field: "body", Message: err.Error()}}}
	}
	return f, nil
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	f, err := decodeForm(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.svc.Predict(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) handleEncode(w http.ResponseWriter, r *http.Request) {
	f, err := decodeForm(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	enc, err := h.svc.Encode(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enc)
}

func (h *handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": predictor.Schema(),
		"order":  ml.FeatureOrder(),
	})
}

type labelEntry struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

func labelList() []labelEntry {
	out := make([]labelEntry, 0, ml.ClassCount)
	for id, label := range ml.Labels() {
		out = append(out, labelEntry{ID: id, Label: label})
	}
	return out
}

func (h *handlers) handleLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, labelList())
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	records, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": records})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":          "ok",
		"artifacts":       "loaded",
		"history":         h.svc.HistoryEnabled(),
		"preview_clients": h.preview.Count(),
	}
	if err := h.svc.Ready(); err != nil {
		body["artifacts"] = "missing"
		body["reason"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleMetrics serves the Prometheus text format, or JSON with
// ?format=json.
func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.svc.Metrics()
	metrics.SetGauge("obesity_preview_clients", float64(h.preview.Count()), nil)
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, map[string]any{
			"metrics": metrics.Snapshot(),
			"system":  metrics.GetSystemStats(),
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, metrics.ExportPrometheus())
}

type pageField struct {
	predictor.Field
	Value string
	Error string
}

type pageSection struct {
	Title  string
	Fields []pageField
}

type pageData struct {
	Sections []pageSection
	Disabled bool
	Notice   string
	Error    string
	Result   *predictor.Result
}

func newPageData(svc *predictor.Service, f predictor.Form) pageData {
	values := f.Values()
	var data pageData
	for _, field := range predictor.Schema() {
		if n := len(data.Sections); n == 0 || data.Sections[n-1].Title != field.Section {
			data.Sections = append(data.Sections, pageSection{Title: field.Section})
		}
		last := &data.Sections[len(data.Sections)-1]
		last.Fields = append(last.Fields, pageField{Field: field, Value: values[field.Name]})
	}
	if err := svc.Ready(); err != nil {
		data.Disabled = true
		data.Notice = err.Error()
	}
	return data
}

func (d *pageData) markField(name, message string) {
	for i := range d.Sections {
		for j := range d.Sections[i].Fields {
			if d.Sections[i].Fields[j].Name == name {
				d.Sections[i].Fields[j].Error = message
			}
		}
	}
}

func (h *handlers) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formPage.Execute(w, data); err != nil {
		h.logger.Error("render form", zap.Error(err))
	}
}

func (h *handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, newPageData(h.svc, predictor.DefaultForm()))
}

func (h *handlers) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := newPageData(h.svc, predictor.DefaultForm())
		data.Error = err.Error()
		h.renderPage(w, http.StatusBadRequest, data)
		return
	}
	f, err := predictor.FormFromValues(r.PostForm)
	if err == nil {
		var result predictor.Result
		result, err = h.svc.Predict(r.Context(), f)
		if err == nil {
			data := newPageData(h.svc, predictor.Normalize(f))
			data.Result = &result
			h.renderPage(w, http.StatusOK, data)
			return
		}
	}

	data := newPageData(h.svc, f)
	if !errors.Is(err, ml.ErrMissingArtifact) {
		data.Error = err.Error()
	}
	var verr *predictor.ValidationError
	if errors.As(err, &verr) {
		data.Error = "Please correct the highlighted answers."
		for _, fe := range verr.Fields {
			data.markField(fe.Field, fe.Message)
		}
	}
	var catErr *ml.UnknownCategoryError
	if errors.As(err, &catErr) {
		data.markField(catErr.Field, "unknown value "+strconv.Quote(catErr.Value))
	}
	h.renderPage(w, statusFor(err), data)
}
