package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/acme/user-service/internal/apperr"
	"github.com/acme/user-service/internal/problem"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(failWith error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(failWith)
		c.Abort()
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("nil map assignment at users.go:42")
	})
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) problem.Response {
	t.Helper()
	var resp problem.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// captureLogs redirects the default logger to a buffer for the duration of
// the test, at debug level so every severity is observable.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})
	return &buf
}

func TestErrorHandler_SuccessPassesThrough(t *testing.T) {
	buf := captureLogs(t)
	rec := get(newRouter(nil), "/ok")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, buf.String(), "Request failed")
}

func TestErrorHandler_TranslatesTypedFailure(t *testing.T) {
	captureLogs(t)
	rec := get(newRouter(apperr.NewArgument("id", "User ID cannot be empty.")), "/boom")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	resp := decode(t, rec)
	require.Equal(t, "Invalid Request Parameter", resp.Title)
	require.Equal(t, "User ID cannot be empty.", resp.Detail)
	require.Equal(t, apperr.CodeArgumentInvalid, resp.Extensions[problem.ExtensionCode])
	require.Equal(t, "id", resp.Extensions["parameter"])
}

func TestErrorHandler_PanicBecomesUnknown(t *testing.T) {
	buf := captureLogs(t)
	rec := get(newRouter(nil), "/panic")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, "Internal Server Error", resp.Title)
	require.Equal(t, apperr.CodeUnknown, resp.Extensions[problem.ExtensionCode])

	// The panic text is for operators, not clients.
	assert.NotContains(t, rec.Body.String(), "users.go:42")
	assert.Contains(t, buf.String(), "Panic recovered")
}

func TestErrorHandler_LogsOncePerFailureAtKindSeverity(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		level string
	}{
		{"not found logs at debug", apperr.NewNotFound("User", "123"), "DEBU"},
		{"validation logs at warn", apperr.NewValidation("User").Add("Name", "required").Err(), "WARN"},
		{"repository failure logs at error", apperr.NewRepository("get", "users", errors.New("boom")), "ERRO"},
		{"unknown logs at error", errors.New("boom"), "ERRO"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLogs(t)
			get(newRouter(tc.err), "/boom")

			out := buf.String()
			require.Equal(t, 1, strings.Count(out, "Request failed"), "expected exactly one failure log, got:\n%s", out)
			failureLine := ""
			for _, line := range strings.Split(out, "\n") {
				if strings.Contains(line, "Request failed") {
					failureLine = line
				}
			}
			assert.Contains(t, failureLine, tc.level)
		})
	}
}

func TestErrorHandler_Idempotent(t *testing.T) {
	captureLogs(t)
	r := newRouter(apperr.NewDuplicateEmail("a@b.com"))

	first := get(r, "/boom")
	second := get(r, "/boom")

	require.Equal(t, http.StatusConflict, first.Code)
	require.Equal(t, first.Code, second.Code)
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestAPIKeyMiddleware_FailuresFlowThroughErrorHandler(t *testing.T) {
	captureLogs(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/secure", APIKeyMiddleware(map[string]string{"secret": "client-1"}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"clientID": c.GetString(ContextKeyClientID)})
	})

	t.Run("missing key", func(t *testing.T) {
		rec := get(r, "/secure")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decode(t, rec)
		require.Equal(t, "Unauthorized", resp.Title)
		require.Equal(t, apperr.CodeUnauthorized, resp.Extensions[problem.ExtensionCode])
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", "Bearer nope")
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", "Bearer secret")
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "client-1")
	})
}
