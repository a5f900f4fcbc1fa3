package httputil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// TestNewRouter tests the creation of a new Router
func TestNewRouter(t *testing.T) {
	r := NewRouter()
	if r == nil {
		t.Fatal("expected router to be non-nil")
	}
}

// TestRouterHandle tests route registration and handling
func TestRouterHandle(t *testing.T) {
	r := NewRouter()
	r.Handle("GET /test", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("expected status OK, got %v", w.Result().StatusCode)
	}
}

// TestRouterMiddleware tests adding and using middleware
func TestRouterMiddleware(t *testing.T) {
	r := NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Test", "true")
			next.ServeHTTP(w, req)
		})
	})

	r.Handle("GET /test", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Test") != "true" {
		t.Errorf("expected X-Test header to be set")
	}
}

// TestRouterGroup tests sub-router grouping
func TestRouterGroup(t *testing.T) {
	r := NewRouter()
	api := r.Group("/api")
	api.Handle("GET /v1/test", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("expected status OK, got %v", w.Result().StatusCode)
	}
}

// TestRouterListenAndServe tests server start and shutdown
func TestRouterListenAndServe(t *testing.T) {
	r := NewRouter()
	r.Handle("GET /test", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serverAddr := ":8081"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.ListenAndServe(serverAddr); err != http.ErrServerClosed {
			t.Logf("expected server to close, got %v", err)
		}
	}()

	time.Sleep(100 * time.Millisecond) // Give the server a moment to start

	req, err := http.NewRequest("GET", "http://localhost:8081/test", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status OK, got %v", resp.StatusCode)
	}

	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("failed to shutdown server: %v", err)
	}

	wg.Wait()
}

// BenchmarkRouterServeHTTP benchmarks serving HTTP requests
func BenchmarkRouterServeHTTP(b *testing.B) {
	r := NewRouter()
	r.Handle("GET /test", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.ServeHTTP(w, req)
	}
}

// BenchmarkRouterHandle benchmarks route registration
func BenchmarkRouterHandle(b *testing.B) {
	r := NewRouter()
	for i := 0; i < b.N; i++ {
		r.Handle("GET /test"+fmt.Sprintf("%d", i), http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}
}
