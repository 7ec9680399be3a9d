package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

const studentCSV = "school;sex;age;G1;G2;G3\nGP;F;18;5;6;6\n"

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(status int, body []byte, opts ...Option) (*Client, *string) {
	var seen string
	client := NewClient(&http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.URL.String()
		resp := http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader(body)),
			Header:     make(http.Header),
		}
		return &resp, nil
	})}, opts...)
	return client, &seen
}

func zipOf(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write(content); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func readDest(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestFetchPlainCSV(t *testing.T) {
	client, seen := newTestClient(http.StatusOK, []byte(studentCSV))
	dest := filepath.Join(t.TempDir(), "data", SourceName)

	n, err := client.Fetch(context.Background(), "https://example.test/student-mat.csv", dest)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if n != int64(len(studentCSV)) || readDest(t, dest) != studentCSV {
		t.Fatalf("unexpected download (%d bytes): %q", n, readDest(t, dest))
	}
	if *seen != "https://example.test/student-mat.csv" {
		t.Fatalf("unexpected url %q", *seen)
	}
}

func TestFetchDrawsProgress(t *testing.T) {
	var progress bytes.Buffer
	client, _ := newTestClient(http.StatusOK, []byte(studentCSV), WithProgress(&progress))

	if _, err := client.Fetch(context.Background(), "https://example.test/", filepath.Join(t.TempDir(), SourceName)); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if progress.Len() == 0 {
		t.Fatalf("expected progress output")
	}
}

func TestFetchNestedZip(t *testing.T) {
	inner := zipOf(t, map[string][]byte{
		"student-por.csv": []byte("school;G3\nGP;10\n"),
		SourceName:        []byte(studentCSV),
	})
	outer := zipOf(t, map[string][]byte{
		"student.zip":        inner,
		".student.zip_old/x": []byte("ignored"),
	})
	client, _ := newTestClient(http.StatusOK, outer)
	dest := filepath.Join(t.TempDir(), SourceName)

	if _, err := client.Fetch(context.Background(), "https://example.test/archive.zip", dest); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got := readDest(t, dest); got != studentCSV {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestFetchArchiveWithoutSource(t *testing.T) {
	client, _ := newTestClient(http.StatusOK, zipOf(t, map[string][]byte{"readme.txt": []byte("hi")}))
	dest := filepath.Join(t.TempDir(), SourceName)

	_, err := client.Fetch(context.Background(), "https://example.test/archive.zip", dest)
	if !errors.Is(err, ErrNotFoundInArchive) {
		t.Fatalf("expected ErrNotFoundInArchive, got %v", err)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("destination should not be written")
	}
}

func TestFetchRejectsNonStudentTable(t *testing.T) {
	client, _ := newTestClient(http.StatusOK, []byte("<html>not found</html>"))

	_, err := client.Fetch(context.Background(), "https://example.test/", filepath.Join(t.TempDir(), SourceName))
	if !errors.Is(err, ErrNotStudentTable) {
		t.Fatalf("expected ErrNotStudentTable, got %v", err)
	}
}

func TestFetchPropagatesNonOKStatus(t *testing.T) {
	client, _ := newTestClient(http.StatusBadGateway, nil)

	if _, err := client.Fetch(context.Background(), "https://example.test/", filepath.Join(t.TempDir(), SourceName)); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestLooksLikeStudentTable(t *testing.T) {
	if !looksLikeStudentTable([]byte(`"school";"sex";"G3"` + "\n")) {
		t.Fatalf("quoted header should be accepted")
	}
	if looksLikeStudentTable([]byte("school,sex,G3\n")) {
		t.Fatalf("comma-delimited header should be rejected")
	}
}
