// Package dataset downloads the student performance source file.
package dataset

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
)

const (
	SourceName = "student-mat.csv"

	maxDownloadBytes = 64 << 20
	maxNestedDepth   = 3
)

var (
	ErrNotFoundInArchive = errors.New(SourceName + " not found in archive")
	ErrNotStudentTable   = errors.New("downloaded file is not a semicolon-delimited student table")
)

type Client struct {
	httpClient *http.Client
	progress   io.Writer
}

type Option func(*Client)

// WithProgress draws a download progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{httpClient: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads url and writes the student table to dest. The response
// may be the CSV itself or a zip archive holding it, possibly inside a
// nested zip. Returns the number of bytes written.
func (c *Client) Fetch(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("dataset download returned status %d", resp.StatusCode)
	}

	var src io.Reader = resp.Body
	if c.progress != nil {
		bar := pb.New64(resp.ContentLength)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(c.progress)
		bar.Start()
		defer bar.Finish()
		src = bar.NewProxyReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(src, maxDownloadBytes+1))
	if err != nil {
		return 0, err
	}
	if len(body) > maxDownloadBytes {
		return 0, fmt.Errorf("dataset download exceeds %d bytes", maxDownloadBytes)
	}

	table := body
	if isZip(body) {
		table, err = extract(body, 0)
		if err != nil {
			return 0, err
		}
	}
	if !looksLikeStudentTable(table) {
		return 0, ErrNotStudentTable
	}

	if err := writeAtomic(dest, table); err != nil {
		return 0, err
	}
	return int64(len(table)), nil
}

func isZip(b []byte) bool {
	return bytes.HasPrefix(b, []byte("PK\x03\x04"))
}

// extract looks for SourceName in the archive first, then in nested zips.
func extract(archive []byte, depth int) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var nested []*zip.File
	for _, f := range r.File {
		name := path.Base(f.Name)
		switch {
		case name == SourceName:
			return readEntry(f)
		case strings.EqualFold(path.Ext(name), ".zip"):
			nested = append(nested, f)
		}
	}

	if depth < maxNestedDepth {
		for _, f := range nested {
			inner, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			if table, err := extract(inner, depth+1); err == nil {
				return table, nil
			} else if !errors.Is(err, ErrNotFoundInArchive) {
				return nil, err
			}
		}
	}
	return nil, ErrNotFoundInArchive
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(b) > maxDownloadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxDownloadBytes)
	}
	return b, nil
}

// looksLikeStudentTable checks that the header is ';'-delimited and has G3.
func looksLikeStudentTable(b []byte) bool {
	header, err := bufio.NewReader(bytes.NewReader(b)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	for _, field := range strings.Split(strings.TrimSpace(header), ";") {
		if strings.Trim(strings.TrimSpace(field), `"`) == "G3" {
			return true
		}
	}
	return false
}

func writeAtomic(dest string, content []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
