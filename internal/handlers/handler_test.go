package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/safetyspeak/backend/internal/middleware"
	"github.com/safetyspeak/backend/internal/models"
	"github.com/safetyspeak/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testIdentity = models.Identity{UserID: "u1", Name: "Lan", Email: "lan@example.com"}

// newRouter mounts a handler under /api/v1; with "identity" set every request is authenticated
func newRouter(register func(r chi.Router), identity *models.Identity) chi.Router {
	r := chi.NewRouter()
	if identity != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), *identity)))
			})
		})
	}
	r.Route("/api/v1", register)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestBaseHandler_RespondJSON(t *testing.T) {
	h := &BaseHandler{Logger: zap.NewNop()}
	rec := httptest.NewRecorder()

	h.RespondJSON(rec, http.StatusCreated, map[string]int{"day": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 3, decodeBody[map[string]int](t, rec)["day"])
}

func TestBaseHandler_RespondJSON_EncodeFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := &BaseHandler{Logger: zap.New(core)}
	rec := httptest.NewRecorder()

	h.RespondJSON(rec, http.StatusOK, make(chan int))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to encode JSON response", logs.All()[0].Message)
}

func TestBaseHandler_RespondError(t *testing.T) {
	h := &BaseHandler{Logger: zap.NewNop()}
	rec := httptest.NewRecorder()

	h.RespondError(rec, http.StatusConflict, "already started")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, map[string]string{"error": "already started"}, decodeBody[map[string]string](t, rec))
}

func TestBaseHandler_RespondServiceError(t *testing.T) {
	h := &BaseHandler{Logger: zap.NewNop()}

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{name: "validation", err: fmt.Errorf("%w: score must be between 0 and 100", services.ErrValidation), expectedStatus: http.StatusBadRequest, expectedMessage: "score must be between 0 and 100"},
		{name: "unknown topic", err: services.ErrUnknownTopic, expectedStatus: http.StatusBadRequest, expectedMessage: "unknown topic"},
		{name: "topic not started", err: services.ErrTopicNotStarted, expectedStatus: http.StatusBadRequest, expectedMessage: "topic not started"},
		{name: "user not found", err: services.ErrUserNotFound, expectedStatus: http.StatusNotFound, expectedMessage: "user not found"},
		{name: "storage", err: fmt.Errorf("%w: failed to submit quiz: timeout", services.ErrStorageUnavailable), expectedStatus: http.StatusServiceUnavailable, expectedMessage: "storage unavailable, please retry"},
		{name: "generation", err: services.ErrGeneration, expectedStatus: http.StatusBadGateway, expectedMessage: "lesson generation failed"},
		{name: "unexpected", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError, expectedMessage: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			h.respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedMessage, decodeBody[map[string]string](t, rec)["error"])
		})
	}
}

// mockCatalog is a mock implementation of CatalogReader
type mockCatalog struct{}

func (mockCatalog) Topics() []models.Topic {
	return []models.Topic{{ID: "general-safety", Name: "General Safety"}, {ID: "electrical", Name: "Electrical Safety"}}
}

func (mockCatalog) Dictionary() []models.DictionaryTerm {
	return []models.DictionaryTerm{{Term: "PPE", Definition: "Personal protective equipment"}}
}

func TestTopicHandler(t *testing.T) {
	router := newRouter(NewTopicHandler(mockCatalog{}, zap.NewNop()).RegisterRoutes, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/topics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	topics := decodeBody[[]models.Topic](t, rec)
	assert.Len(t, topics, 2)
	assert.Equal(t, "general-safety", topics[0].ID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/dictionary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PPE", decodeBody[[]models.DictionaryTerm](t, rec)[0].Term)
}

// mockPinger is a mock implementation of Pinger
type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{name: "healthy", expectedStatus: http.StatusOK, expectedBody: `{"status":"ok"}`},
		{name: "database down", err: errors.New("connection refused"), expectedStatus: http.StatusServiceUnavailable, expectedBody: `{"status":"unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHealthHandler(&mockPinger{err: tt.err}, zap.NewNop()).RegisterRoutes(r)

			rec := doRequest(t, r, http.MethodGet, "/health", "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
		})
	}
}
