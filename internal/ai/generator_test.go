package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPGenerator_SendsWindowAndLatest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("method=%s content-type=%s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"reply": "  hello back  "})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, 5*time.Second)
	window := []TurnPayload{{Role: "user", Text: "hi"}, {Role: "bot", Text: "hey"}}
	reply, err := g.Generate(context.Background(), window, "how are you?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "hello back" {
		t.Fatalf("reply = %q; want trimmed hello back", reply)
	}
	if len(got.Messages) != 2 || got.Message != "how are you?" {
		t.Fatalf("request payload: %+v", got)
	}
}

func TestHTTPGenerator_AcceptsAlternateReplyKeys(t *testing.T) {
	for _, key := range []string{"answer", "text"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{key: "via " + key})
		}))
		g := NewHTTPGenerator(srv.URL, time.Second)
		reply, err := g.Generate(context.Background(), nil, "m")
		srv.Close()
		if err != nil || reply != "via "+key {
			t.Errorf("key %s: reply=%q err=%v", key, reply, err)
		}
	}
}

func TestHTTPGenerator_Failures(t *testing.T) {
	// Non-2xx status.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	g := NewHTTPGenerator(srv.URL, time.Second)
	if _, err := g.Generate(context.Background(), nil, "m"); err == nil {
		t.Errorf("503 must be reported as an error")
	}
	srv.Close()

	// Body with no usable reply key.
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"reply": "   "})
	}))
	g = NewHTTPGenerator(srv.URL, time.Second)
	if _, err := g.Generate(context.Background(), nil, "m"); err == nil {
		t.Errorf("blank reply must be reported as an error")
	}
	srv.Close()

	// Unparseable body.
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	g = NewHTTPGenerator(srv.URL, time.Second)
	if _, err := g.Generate(context.Background(), nil, "m"); err == nil {
		t.Errorf("invalid JSON must be reported as an error")
	}
	srv.Close()

	// No endpoint configured.
	g = NewHTTPGenerator("   ", time.Second)
	if _, err := g.Generate(context.Background(), nil, "m"); err == nil {
		t.Errorf("blank endpoint must be reported as an error")
	}
}

func TestHTTPGenerator_HonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, nil, "m"); err == nil {
		t.Fatalf("cancelled context must abort the call")
	}
}
