package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountsByRouteAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/things/:id", "200"))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	}

	after := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/things/:id", "200"))
	if after-before != 3 {
		t.Fatalf("counter delta = %v; want 3", after-before)
	}
}

func TestMetrics_FallsBackToRawPathOn404(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())

	before := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nowhere", "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	after := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nowhere", "404"))
	if after-before != 1 {
		t.Fatalf("unmatched route counter delta = %v; want 1", after-before)
	}
}

func TestMetrics_InflightReturnsToZeroDelta(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/p", func(c *gin.Context) {
		if testutil.ToFloat64(httpInflight) < 1 {
			t.Errorf("inflight gauge not incremented during handler")
		}
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(httpInflight)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	if got := testutil.ToFloat64(httpInflight); got != before {
		t.Fatalf("inflight gauge = %v; want %v after completion", got, before)
	}
}
