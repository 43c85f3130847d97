package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/metrics"
)

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotFound(rec, "team not found")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body JSONErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "team not found", body.Message)
	assert.Equal(t, http.StatusNotFound, body.Code)
}

func TestRequestIDIsAssignedAndKept(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestCORSRestrictsOrigins(t *testing.T) {
	h := CORSMiddleware([]string{"https://kasse.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/teams", nil)
	req.Header.Set("Origin", "https://kasse.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://kasse.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBaseServerRecordsRouteTemplate(t *testing.T) {
	m := metrics.New()
	bs := NewBaseServer(":0", zap.NewNop(), ServerOptions{Metrics: m})
	bs.Router.HandleFunc("/teams/{teamId}", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusForbidden, "nope")
	})

	rec := httptest.NewRecorder()
	bs.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teams/t1", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	bs.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `route="/teams/{teamId}"`)
}

func TestClientMapsStatusAndSendsToken(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/secret", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			WriteUnauthorized(w, "missing token")
			return
		}
		_ = WriteJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})
	r.HandleFunc("/missing", func(w http.ResponseWriter, req *http.Request) {
		WriteNotFound(w, "player not found")
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	err := c.Get(ctx, "/secret", nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	c.SetToken("tok")
	var out map[string]string
	require.NoError(t, c.Get(ctx, "/secret", &out))
	assert.Equal(t, "yes", out["ok"])

	err = c.Get(ctx, "/missing", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "player not found")
}

func TestClientErrorsCarryStatusAndMessage(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/teams/t1", func(w http.ResponseWriter, req *http.Request) {
		WriteForbidden(w, "Team was not successfully removed!")
	}).Methods("DELETE")
	r.HandleFunc("/teams/t2", func(w http.ResponseWriter, req *http.Request) {
		_ = WriteJSON(w, http.StatusOK, map[string]string{"message": "Team removed!"})
	}).Methods("DELETE")
	r.HandleFunc("/boom", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "upstream gone", http.StatusBadGateway)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	ctx := context.Background()

	err := c.Delete(ctx, "/teams/t1", nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "Team was not successfully removed!", httpErr.Message)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.True(t, IsHTTPError(err, http.StatusForbidden))
	assert.False(t, IsHTTPError(err, http.StatusNotFound))

	var out map[string]string
	require.NoError(t, c.Delete(ctx, "/teams/t2", &out))
	assert.Equal(t, "Team removed!", out["message"])

	err = c.Get(ctx, "/boom", nil)
	assert.True(t, errors.Is(err, ErrInternalError))
	assert.Contains(t, err.Error(), "upstream gone")
}
