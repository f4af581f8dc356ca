package harness

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestEnsureModelDownloadsAndCaches(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		if r.URL.Path != "/ggml-org/models/resolve/main/tinyllamas/stories260K.gguf" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("GGUF fake model bytes"))
	}))
	defer srv.Close()

	store := testStore(t, "")
	store.HFBase = srv.URL

	path, err := store.EnsureModel("ggml-org/models", "tinyllamas/stories260K.gguf")
	if err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "GGUF fake model bytes" {
		t.Fatalf("model content = %q, %v", data, err)
	}

	// Second call must hit the local cache.
	again, err := store.EnsureModel("ggml-org/models", "tinyllamas/stories260K.gguf")
	if err != nil {
		t.Fatalf("cached EnsureModel: %v", err)
	}
	if again != path {
		t.Errorf("cached path %s differs from %s", again, path)
	}
	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("model fetched %d times, want 1", requests)
	}
}

func TestEnsureModelGatedRepoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := testStore(t, "")
	store.HFBase = srv.URL

	_, err := store.EnsureModel("private/repo", "model.gguf")
	if err == nil {
		t.Fatal("expected an error for a gated repo")
	}
	if !strings.Contains(err.Error(), "HF_TOKEN") {
		t.Errorf("gated repo error should mention HF_TOKEN: %v", err)
	}
}

func TestEnsureModelLeavesNoPartialFile(t *testing.T) {
	// Server that reports a larger length than it sends, then dies.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write([]byte("truncated"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	store := testStore(t, "")
	store.HFBase = srv.URL

	_, err := store.EnsureModel("acme/models", "model.gguf")
	if err == nil {
		t.Fatal("expected truncated download to fail")
	}
	if _, statErr := os.Stat(store.ModelsDir + "/acme/models/model.gguf"); !os.IsNotExist(statErr) {
		t.Error("failed download must not leave the destination file behind")
	}
}
