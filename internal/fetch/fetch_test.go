package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

var archiveEntries = map[string]string{
	"Anduin2017-HowToCook-abc123/README.md":                    "# readme",
	"Anduin2017-HowToCook-abc123/dishes/aquatic/鳊鱼炖豆腐.md":      "# 鳊鱼炖豆腐",
	"Anduin2017-HowToCook-abc123/dishes/meat/红烧肉/红烧肉.md":        "# 红烧肉",
	"Anduin2017-HowToCook-abc123/dishes/meat/红烧肉/红烧肉.jpg":       "jpeg",
	"Anduin2017-HowToCook-abc123/tips/learn/学习.md":              "# tips",
	"Anduin2017-HowToCook-abc123/dishes/soup/番茄蛋汤.md":          "# 番茄蛋汤",
}

func sortedNames(entries map[string]string) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedNames(entries) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, entries[name])
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "repo.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTar(t *testing.T, w io.Writer, entries map[string]string) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, name := range sortedNames(entries) {
		body := entries[name]
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		io.WriteString(tw, body)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeTarGz(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	writeTar(t, gz, entries)
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "repo.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTarXz(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	writeTar(t, xw, entries)
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "repo.tar.xz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract(t *testing.T) {
	builders := map[string]func(*testing.T, map[string]string) string{
		"zip":    writeZip,
		"tar.gz": writeTarGz,
		"tar.xz": writeTarXz,
	}
	for kind, build := range builders {
		t.Run(kind, func(t *testing.T) {
			dest := t.TempDir()
			written, err := Extract(build(t, archiveEntries), dest)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(written) != 3 {
				t.Fatalf("expected 3 documents, got %v", written)
			}
			want := []string{
				filepath.Join(dest, "aquatic", "鳊鱼炖豆腐.md"),
				filepath.Join(dest, "meat", "红烧肉.md"),
				filepath.Join(dest, "soup", "番茄蛋汤.md"),
			}
			for _, p := range want {
				data, err := os.ReadFile(p)
				if err != nil {
					t.Errorf("expected %s to exist: %v", p, err)
					continue
				}
				if !bytes.HasPrefix(data, []byte("# ")) {
					t.Errorf("unexpected content in %s: %q", p, data)
				}
			}
			if _, err := os.Stat(filepath.Join(dest, "learn")); !os.IsNotExist(err) {
				t.Error("expected non-dish entries to be skipped")
			}
		})
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	path := writeTarGz(t, map[string]string{
		"root/dishes/../../../evil.md": "# evil",
	})
	_, err := Extract(path, t.TempDir())
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected unsafe path error, got %v", err)
	}
}

func TestExtract_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.bin")
	if err := os.WriteFile(path, []byte("not an archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Extract(path, t.TempDir()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func newTestClient(url string) *Client {
	c := NewClient(url, "secret", 5*time.Second, nil)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestDownload_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/Anduin2017/HowToCook/zipball/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := newTestClient(srv.URL).Download(context.Background(), "Anduin2017", "HowToCook", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != int64(len("archive-bytes")) || buf.String() != "archive-bytes" {
		t.Errorf("unexpected body %q (%d bytes)", buf.String(), n)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestDownload_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Download(context.Background(), "o", "r", io.Discard)
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if calls.Load() != MaxRetries {
		t.Errorf("expected %d calls, got %d", MaxRetries, calls.Load())
	}
}

func TestDownload_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "Not Found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Download(context.Background(), "o", "r", io.Discard)
	if err == nil || IsRetryable(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cache", "repo.zip")
	if _, err := newTestClient(srv.URL).DownloadFile(context.Background(), "o", "r", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "zip" {
		t.Errorf("expected archive on disk, got %q, %v", data, err)
	}
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: expected [%v, %v), got %v", attempt, base, base+base/2, d)
		}
	}
	if d := Backoff(10); d < 30*time.Second || d >= 45*time.Second {
		t.Errorf("expected capped backoff, got %v", d)
	}
}
