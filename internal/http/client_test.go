package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Fetch(t *testing.T) {
	payload := []byte{0x66, 0x4c, 0x61, 0x43, 0x00, 0xff, 0x10}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("User-Agent = %q, want %q", got, DefaultUserAgent)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient()
	resp, err := client.Fetch(context.Background(), srv.URL+"/a.flac", nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if !resp.OK() {
		t.Errorf("OK() = false, want true (status %d)", resp.StatusCode)
	}
	if !bytes.Equal(resp.Body, payload) {
		t.Errorf("Body = %v, want %v", resp.Body, payload)
	}
}

func TestClient_FetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := NewClient().Fetch(context.Background(), srv.URL+"/old", nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if string(resp.Body) != "moved" {
		t.Errorf("Body = %q, want %q", resp.Body, "moved")
	}
	if resp.URL != srv.URL+"/new" {
		t.Errorf("URL = %q, want %q", resp.URL, srv.URL+"/new")
	}
}

func TestClient_FetchReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := NewClient().Fetch(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Fetch returned error for non-2xx status: %v", err)
	}

	if resp.OK() {
		t.Error("OK() = true for 404")
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestClient_FetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := NewClient().Fetch(context.Background(), url, nil); err == nil {
		t.Error("expected error for closed server, got none")
	}
}

func TestClient_FetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	if _, err := client.Fetch(context.Background(), srv.URL, nil); err == nil {
		t.Error("expected timeout error, got none")
	}
}

func TestClient_FetchProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64*1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	var last int64
	_, err := NewClient().Fetch(context.Background(), srv.URL, func(read, total int64) {
		if read < last {
			t.Errorf("progress went backwards: %d after %d", read, last)
		}
		last = read
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if last != int64(len(payload)) {
		t.Errorf("final progress = %d, want %d", last, len(payload))
	}
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(WithUserAgent("custom"))

	data, err := client.Get(context.Background(), srv.URL+"/present")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("Get = %q, want %q", data, "ok")
	}

	if _, err := client.Get(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404, got none")
	}
}
