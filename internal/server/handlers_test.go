package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/diachron/internal/comparison"
	"github.com/hyperjump/diachron/internal/config"
	"github.com/hyperjump/diachron/internal/models"
	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/internal/storage"
	"go.uber.org/zap"
)

func writePeriod(t *testing.T, root, id string, words []string, vecs [][]float32) {
	t.Helper()
	sp, err := space.FromWords(id, words, vecs)
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.WriteFile(filepath.Join(root, id, id+storage.ModelExt), sp); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T, cfg config.ServerConfig, withStore bool) http.Handler {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "models")
	writePeriod(t, root, "1970-1979",
		[]string{"mouse", "cat", "cheese", "trap", "house"},
		[][]float32{{1, 0.1, 0}, {0.9, 0.2, 0.1}, {0.8, 0, 0.3}, {0.7, 0.3, 0}, {0, 1, 0}})
	writePeriod(t, root, "1990-1999",
		[]string{"mouse", "keyboard", "cat", "cheese", "trap", "house", "screen"},
		[][]float32{{0.1, 0.2, 1}, {0, 0.3, 0.9}, {0.9, 0.2, 0.1}, {0.8, 0, 0.3}, {0.7, 0.3, 0}, {0, 1, 0}, {0.1, 0, 0.8}})

	var opts []comparison.Option
	if withStore {
		store, err := storage.NewSQLiteStore(filepath.Join(dir, "db.sqlite"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { store.Close() })
		opts = append(opts, comparison.WithStore(store))
	}
	engine := comparison.NewEngine(storage.NewLoader(root), opts...)
	t.Cleanup(func() { engine.Close() })

	limits := models.Limits{DefaultNeighbors: 2, MaxNeighbors: 5}
	return NewServer(engine, &cfg, limits, zap.NewNop()).Router()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	rec := do(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleSynonyms(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	rec := do(t, h, http.MethodPost, "/api/v1/synonyms", map[string]interface{}{
		"word": "mouse", "periods": []string{"1970-1979", "1990-1999"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp models.SynonymsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if got := resp.Results[1].Neighbors.Words(); len(got) != 2 || got[0] != "keyboard" {
		t.Errorf("1990s neighbors = %v (default n applies)", got)
	}
}

func TestHandleSynonyms_UnknownWord(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	rec := do(t, h, http.MethodPost, "/api/v1/synonyms", map[string]interface{}{
		"word": "mause", "periods": []string{"1970-1979"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body struct {
		Suggestions []string `json:"suggestions"`
		Period      string   `json:"period"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Period != "1970-1979" || len(body.Suggestions) == 0 || body.Suggestions[0] != "mouse" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandleSynonyms_BadRequests(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	cases := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed", "{", http.StatusBadRequest},
		{"empty word", map[string]interface{}{"word": " ", "periods": []string{"1970-1979"}}, http.StatusBadRequest},
		{"no periods", map[string]interface{}{"word": "mouse"}, http.StatusBadRequest},
		{"negative n", map[string]interface{}{"word": "mouse", "periods": []string{"1970-1979"}, "n": -1}, http.StatusBadRequest},
		{"unknown period", map[string]interface{}{"word": "mouse", "periods": []string{"1800-1809"}}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/synonyms", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestHandleSimilarity(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	rec := do(t, h, http.MethodPost, "/api/v1/similarity", map[string]interface{}{
		"word_a": "mouse", "word_b": "cat", "periods": []string{"1970-1979", "1990-1999"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp models.SimilarityResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Results[0].Score <= resp.Results[1].Score {
		t.Errorf("expected mouse and cat to drift apart, got %+v", resp.Results)
	}
}

func TestHandleDrift_StoredAndFetched(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{DriftBurst: 10}, true)
	rec := do(t, h, http.MethodPost, "/api/v1/drift", map[string]interface{}{
		"word": "mouse", "periods": []string{"1970-1979", "1990-1999"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var stored storage.StoredFrame
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatal(err)
	}
	if stored.ID == "" || stored.Frame == nil || len(stored.Frame.Trajectory) != 2 {
		t.Fatalf("unexpected stored frame: %+v", stored)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/drift/"+stored.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/drift?limit=5", nil)
	var list struct {
		Frames []storage.StoredFrame `json:"frames"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || len(list.Frames) != 1 || list.Frames[0].ID != stored.ID {
		t.Errorf("list = %d %+v", rec.Code, list.Frames)
	}
	if rec = do(t, h, http.MethodGet, "/api/v1/drift?limit=x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/drift/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing frame status = %d, want 404", rec.Code)
	}
}

func TestHandleDrift_WithoutStore(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	rec := do(t, h, http.MethodPost, "/api/v1/drift", map[string]interface{}{
		"word": "mouse", "periods": []string{"1970-1979", "1990-1999"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/drift/any", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("get without store = %d, want 501", rec.Code)
	}
}

func TestHandleDrift_NoData(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	rec := do(t, h, http.MethodPost, "/api/v1/drift", map[string]interface{}{
		"word": "walkman", "periods": []string{"1970-1979", "1990-1999"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHandleDrift_RateLimited(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{DriftRatePerSecond: 0.001, DriftBurst: 1}, false)
	body := map[string]interface{}{"word": "mouse", "periods": []string{"1970-1979", "1990-1999"}}
	if rec := do(t, h, http.MethodPost, "/api/v1/drift", body); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/drift", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestHandlePeriodsAndStatus(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, true)
	rec := do(t, h, http.MethodGet, "/api/v1/periods", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("periods status = %d", rec.Code)
	}
	var periods struct {
		Periods []models.PeriodInfo `json:"periods"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&periods); err != nil {
		t.Fatal(err)
	}
	if len(periods.Periods) != 2 || periods.Periods[0].Period != "1970-1979" {
		t.Errorf("unexpected periods: %+v", periods.Periods)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status status = %d", rec.Code)
	}
	var st models.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.ModelFiles != 2 {
		t.Errorf("model files = %d, want 2", st.ModelFiles)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, false)
	do(t, h, http.MethodGet, "/api/v1/periods", nil)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `diachron_requests_total{code="200",endpoint="periods"} 1`) {
		t.Errorf("request counter missing from metrics output")
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&space.WordNotFoundError{Word: "x", SpaceID: "p"}, http.StatusNotFound},
		{space.NewNotFoundError("p", nil), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", models.ErrInvalidRequest), http.StatusBadRequest},
		{&space.IncompatibleSpaceError{SourceID: "a", ReferenceID: "b", SourceDim: 2, ReferenceDim: 3}, http.StatusUnprocessableEntity},
		{&space.AlignmentError{SourceID: "a", ReferenceID: "b", Reason: "empty"}, http.StatusUnprocessableEntity},
		{space.ErrInsufficientData, http.StatusUnprocessableEntity},
		{comparison.ErrNoStore, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
