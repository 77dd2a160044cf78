package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactingLogger_ScrubsQueryValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/p?email=ada@example.com&id=6f1e0a9c-8b2d-4c3e-9a1b-2c3d4e5f6a7b&phone=210-1234-5678", nil)
	r.ServeHTTP(w, req)

	out := buf.String()
	if strings.Contains(out, "ada@example.com") || !strings.Contains(out, "[REDACTED:email]") {
		t.Errorf("email not scrubbed: %s", out)
	}
	if strings.Contains(out, "6f1e0a9c") || !strings.Contains(out, "[REDACTED:id]") {
		t.Errorf("uuid not scrubbed: %s", out)
	}
	if !strings.Contains(out, "[REDACTED:phone]") {
		t.Errorf("phone not scrubbed: %s", out)
	}
}

func TestRedactingLogger_MasksSensitiveHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer super-secret-token")
	req.Header.Set("Cookie", "session=abc")
	req.Header.Set("X-Api-Key", "key-12345")
	req.Header.Set("Accept", "application/json")
	r.ServeHTTP(w, req)

	out := buf.String()
	for _, leaked := range []string{"super-secret-token", "session=abc", "key-12345"} {
		if strings.Contains(out, leaked) {
			t.Errorf("sensitive value %q leaked: %s", leaked, out)
		}
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("mask marker missing: %s", out)
	}
	if !strings.Contains(out, "application/json") {
		t.Errorf("benign header should survive: %s", out)
	}
}

func TestRedactingLogger_LevelTracksStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("4xx should log at warn: %s", buf.String())
	}

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("5xx should log at error: %s", buf.String())
	}
}
