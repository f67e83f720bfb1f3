package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"obesitycheck/artifacts"
	"obesitycheck/db"
	"obesitycheck/ml"
	"obesitycheck/ml/mltest"
	"obesitycheck/predictor"
)

func newTestHandler(t *testing.T, source artifacts.Source, opts ...predictor.Option) http.Handler {
	t.Helper()
	svc, err := predictor.New(source, opts...)
	require.NoError(t, err)
	return NewHandler(DefaultServerConfig(), svc, zap.NewNop())
}

func readyHandler(t *testing.T, opts ...predictor.Option) http.Handler {
	return newTestHandler(t, artifacts.NewStatic(artifacts.NewBundle(mltest.Scaler(), mltest.Forest())), opts...)
}

func missingHandler(t *testing.T) http.Handler {
	dir := t.TempDir()
	bundle := artifacts.Load(artifacts.Settings{
		ScalerPath: filepath.Join(dir, mltest.ScalerFile),
		ModelType:  ml.ModelRandomForest,
		ModelPath:  filepath.Join(dir, mltest.ModelFile),
	}, zap.NewNop())
	return newTestHandler(t, artifacts.NewStatic(bundle))
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthHandler(t *testing.T) {
	rr := do(t, readyHandler(t), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[map[string]any](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "loaded", body["artifacts"])
	assert.Equal(t, false, body["history"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHealthReportsMissingArtifacts(t *testing.T) {
	rr := do(t, missingHandler(t), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[map[string]any](t, rr)
	assert.Equal(t, "missing", body["artifacts"])
	assert.Contains(t, body["reason"], "preprocessing_objects.json")
}

func TestLabelsHandler(t *testing.T) {
	rr := do(t, readyHandler(t), http.MethodGet, "/api/labels", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	labels := decode[[]labelEntry](t, rr)
	require.Len(t, labels, ml.ClassCount)
	assert.Equal(t, labelEntry{ID: 0, Label: "Normal Weight"}, labels[0])
	assert.Equal(t, labelEntry{ID: 6, Label: "Overweight Level II"}, labels[6])
}

func TestSchemaHandler(t *testing.T) {
	rr := do(t, readyHandler(t), http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[struct {
		Fields []predictor.Field `json:"fields"`
		Order  []string          `json:"order"`
	}](t, rr)
	assert.Len(t, body.Fields, ml.FeatureCount)
	assert.Equal(t, ml.FeatureOrder(), body.Order)
}

func TestEncodeHandler(t *testing.T) {
	rr := do(t, readyHandler(t), http.MethodPost, "/api/encode", predictor.DefaultForm())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	enc := decode[predictor.Encoding](t, rr)
	assert.Equal(t, 1.0, enc.Encoded[ml.ColGender])
	assert.Equal(t, 2.0, enc.Encoded[ml.ColCAEC])
	assert.Equal(t, 0.0, enc.Encoded[ml.ColCALC])
	assert.Equal(t, 3.0, enc.Encoded[ml.ColMTRANS])
	assert.Equal(t, ml.FeatureOrder(), enc.Order)
}

func TestHistoryHandler(t *testing.T) {
	rr := do(t, readyHandler(t), http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	store, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := readyHandler(t, predictor.WithHistory(store))
	for _, weight := range []float64{70, 90} {
		f := predictor.DefaultForm()
		f.Weight = weight
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/predict", f).Code)
	}

	rr = do(t, h, http.MethodGet, "/api/history?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[struct {
		Predictions []db.PredictionRecord `json:"predictions"`
	}](t, rr)
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, "Overweight Level I", body.Predictions[0].Label)

	rr = do(t, h, http.MethodGet, "/api/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFormPage(t *testing.T) {
	rr := do(t, readyHandler(t), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")

	page := rr.Body.String()
	assert.Contains(t, page, `name="Weight" value="70"`)
	assert.Contains(t, page, `<option value="Public_Transportation" selected>`)
	assert.Contains(t, page, "Eating habits")
	assert.NotContains(t, page, "disabled")
}

func TestFormPageDisabledWithoutArtifacts(t *testing.T) {
	rr := do(t, missingHandler(t), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	page := rr.Body.String()
	assert.Contains(t, page, "artifact scaler not found at")
	assert.Contains(t, page, `<button type="submit" disabled>`)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	rr := do(t, readyHandler(t), http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func postForm(t *testing.T, h http.Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(context.Background()))
	return rr
}

func TestFormSubmit(t *testing.T) {
	values := url.Values{}
	for k, v := range predictor.DefaultForm().Values() {
		values.Set(k, v)
	}
	values.Set(ml.ColGender, "male")

	rr := postForm(t, readyHandler(t), values)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Predicted obesity level: Normal Weight")
	assert.Contains(t, rr.Body.String(), `<option value="Male" selected>`)
}

func TestFormSubmitRejectsOutOfRange(t *testing.T) {
	rr := postForm(t, readyHandler(t), url.Values{"Age": {"150"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "must be at most 100")
	assert.NotContains(t, rr.Body.String(), "Predicted obesity level")
}

func TestFormSubmitWithoutArtifacts(t *testing.T) {
	rr := postForm(t, missingHandler(t), url.Values{})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "artifact classifier not found at")
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "http://example.test")
	rr := httptest.NewRecorder()
	readyHandler(t).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://example.test", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsHandler(t *testing.T) {
	h := readyHandler(t, predictor.WithCacheSize(4))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/predict", predictor.DefaultForm()).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/predict", predictor.DefaultForm()).Code)
	bad := predictor.DefaultForm()
	bad.MTRANS = "Train"
	require.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPost, "/api/predict", bad).Code)

	rr := do(t, h, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))
	text := rr.Body.String()
	assert.Contains(t, text, "# TYPE obesity_predictions_total counter")
	assert.Contains(t, text, "obesity_cache_hits_total 1\n")
	assert.Contains(t, text, `obesity_rejections_total{reason="unknown_category"} 1`)
	assert.Contains(t, text, `obesity_predict_seconds_bucket{le="+Inf"} 1`)
	assert.Contains(t, text, "obesity_preview_clients 0\n")

	rr = do(t, h, http.MethodGet, "/api/metrics?format=json", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[struct {
		Metrics []struct {
			Name   string            `json:"name"`
			Labels map[string]string `json:"labels"`
			Value  float64           `json:"value"`
		} `json:"metrics"`
		System map[string]any `json:"system"`
	}](t, rr)
	assert.Contains(t, body.System, "goroutines")
	var predictions float64
	for _, m := range body.Metrics {
		if m.Name == predictor.MetricPredictions {
			predictions += m.Value
		}
	}
	assert.Equal(t, 2.0, predictions)
}

func TestMetricsCountMissingArtifacts(t *testing.T) {
	h := missingHandler(t)
	require.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/api/predict", predictor.DefaultForm()).Code)

	rr := do(t, h, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `obesity_rejections_total{reason="missing_artifact"} 1`)
}
