package drive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// --- ExtractFileID ---

func TestExtractFileID(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{"path segment", "https://drive.google.com/file/d/1aB_c-D2eF/view?usp=sharing", "1aB_c-D2eF", true},
		{"query param first", "https://drive.google.com/uc?id=xYz_123-abc", "xYz_123-abc", true},
		{"query param later", "https://drive.google.com/uc?export=view&id=QQ99_ss", "QQ99_ss", true},
		{"open link", "https://drive.google.com/open?id=0B1234abcd", "0B1234abcd", true},
		{"no identifier", "https://example.com/photos/wedding.jpg", "", false},
		{"empty url", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := ExtractFileID(tc.url)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if id != tc.wantID {
				t.Errorf("id = %q, want %q", id, tc.wantID)
			}
		})
	}
}

// --- Fetch ---

// driveServer serves both the API media endpoint and the public fallback
// from one httptest server so a single base URL covers both paths.
func driveServer(t *testing.T, media, fallback http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	if media != nil {
		mux.HandleFunc("/drive/v3/files/", media)
	}
	if fallback != nil {
		mux.HandleFunc("/uc", fallback)
	}
	return httptest.NewServer(mux)
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestFetch_PrimarySuccess(t *testing.T) {
	var fallbackHit bool
	ts := driveServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/file123") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.URL.Query().Get("alt") != "media" {
				t.Errorf("missing alt=media, got %q", r.URL.Query().Get("alt"))
			}
			if r.URL.Query().Get("key") != "test-key" {
				t.Errorf("missing api key, got %q", r.URL.Query().Get("key"))
			}
			w.Write([]byte("jpeg-bytes"))
		},
		func(w http.ResponseWriter, r *http.Request) {
			fallbackHit = true
		})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "test-key", ts.URL, 5*time.Second)
	rc, err := c.Fetch(context.Background(), "file123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readAll(t, rc); got != "jpeg-bytes" {
		t.Errorf("body = %q", got)
	}
	if fallbackHit {
		t.Error("fallback should not be called when the API succeeds")
	}
}

func TestFetch_FallbackAfterPrimaryFailure(t *testing.T) {
	ts := driveServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		},
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("export") != "download" {
				t.Errorf("missing export=download, got %q", r.URL.Query().Get("export"))
			}
			if r.URL.Query().Get("id") != "file123" {
				t.Errorf("missing id, got %q", r.URL.Query().Get("id"))
			}
			w.Write([]byte("public-bytes"))
		})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "test-key", ts.URL, 5*time.Second)
	rc, err := c.Fetch(context.Background(), "file123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readAll(t, rc); got != "public-bytes" {
		t.Errorf("body = %q", got)
	}
}

func TestFetch_BothPathsFail(t *testing.T) {
	ts := driveServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		},
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "test-key", ts.URL, 5*time.Second)
	_, err := c.Fetch(context.Background(), "file123")
	if err == nil {
		t.Fatal("expected error when both paths fail")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.FileID != "file123" {
		t.Errorf("file id = %q", fe.FileID)
	}
	if !errors.Is(fe.Primary, ErrDriveStatus) {
		t.Errorf("primary = %v, want ErrDriveStatus", fe.Primary)
	}
	if !errors.Is(fe.Fallback, ErrDriveStatus) {
		t.Errorf("fallback = %v, want ErrDriveStatus", fe.Fallback)
	}
	// Message references both failures for the archive placeholder.
	msg := fe.Error()
	if !strings.Contains(msg, "403") || !strings.Contains(msg, "Fallback") {
		t.Errorf("message should carry both causes: %q", msg)
	}
}

func TestFetch_FallbackNonSuccessStatusIsFailure(t *testing.T) {
	ts := driveServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		func(w http.ResponseWriter, r *http.Request) {
			// 302 without body counts as failure too: only 2xx is success.
			w.WriteHeader(http.StatusNotFound)
		})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "k", ts.URL, 5*time.Second)
	_, err := c.Fetch(context.Background(), "abc")
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	ts := driveServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}, nil)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewHTTPClient(ts.URL, "k", ts.URL, 5*time.Second)
	_, err := c.Fetch(ctx, "abc")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if !errors.Is(fe.Primary, ErrDriveTimeout) {
		t.Errorf("primary = %v, want ErrDriveTimeout", fe.Primary)
	}
}
