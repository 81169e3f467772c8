package lpr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecognizeSendsMultipartAndSortsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "car.jpg" || string(data) != "jpeg-bytes" {
			t.Errorf("unexpected upload %q %q", hdr.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[{"plate":"wx 1","confidence":0.4,"box":[1,2,3,4]},{"plate":"wa 12345","confidence":0.93,"box":{"x1":1}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	a, err := c.Recognize(context.Background(), "/tmp/car.jpg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}
	if a.Plate != "WA12345" || a.Confidence != 0.93 || len(a.Results) != 2 || a.Source != "car.jpg" {
		t.Fatalf("unexpected analysis %+v", a)
	}
}

func TestRecognizeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"invalid image"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Recognize(context.Background(), "x.png", strings.NewReader("x"))
	var up UpstreamError
	if !errors.As(err, &up) || up.Status != http.StatusBadRequest || up.Detail != "invalid image" {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestRecognizeNoPlates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[]}`)
	}))
	defer srv.Close()

	a, err := NewClient(srv.URL, time.Second).Recognize(context.Background(), "x.png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}
	if a.Plate != "" || len(a.Results) != 0 {
		t.Fatalf("expected empty analysis, got %+v", a)
	}
}

func TestRandomSample(t *testing.T) {
	dir := t.TempDir()
	if _, err := RandomSample(dir); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "car.JPG"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := RandomSample(dir)
	if err != nil || filepath.Base(got) != "car.JPG" {
		t.Fatalf("unexpected sample %q, %v", got, err)
	}
	if _, err := RandomSample(""); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples for empty dir setting, got %v", err)
	}
}
