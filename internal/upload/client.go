// Package upload talks to the external blob host. Files shared in
// chat are never stored locally: the API handler streams the upload
// straight through to the host and only the returned URL enters the
// message flow.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Kind classifies an attachment by its file extension. The terminal
// UI picks a renderer off this: inline <img>, inline <video>, or a
// plain download link.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindRaw   Kind = "raw"
)

// Result is what the blob host hands back for a stored file.
type Result struct {
	URL      string `json:"url"`
	Kind     Kind   `json:"kind"`
	Filename string `json:"filename"`
}

type Client struct {
	http   *http.Client
	url    string
	folder string
	logger *zap.Logger
}

func NewClient(uploadURL, folder string, logger *zap.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		url:    uploadURL,
		folder: folder,
		logger: logger,
	}
}

// hostResponse is the blob host's own response shape.
type hostResponse struct {
	SecureURL string `json:"secure_url"`
}

// Store sends the file to the blob host and returns its public URL
// plus the inferred kind.
func (c *Client) Store(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	body, contentType, err := buildForm(c.folder, filename, r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload file: blob host returned %d", resp.StatusCode)
	}

	var hr hostResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if hr.SecureURL == "" {
		return nil, fmt.Errorf("decode upload response: missing secure_url")
	}

	return &Result{
		URL:      hr.SecureURL,
		Kind:     KindFromFilename(filename),
		Filename: filename,
	}, nil
}

func buildForm(folder, filename string, r io.Reader) (io.Reader, string, error) {
	var buf strings.Builder
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("folder", folder); err != nil {
		return nil, "", fmt.Errorf("build upload form: %w", err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("read upload body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finish upload form: %w", err)
	}

	return strings.NewReader(buf.String()), w.FormDataContentType(), nil
}

// KindFromFilename infers the attachment kind from the extension.
// Anything unrecognized is raw — the UI falls back to a download link.
func KindFromFilename(filename string) Kind {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")) {
	case "png", "jpg", "jpeg", "gif", "webp", "svg", "bmp":
		return KindImage
	case "mp4", "webm", "mov", "avi", "mkv":
		return KindVideo
	default:
		return KindRaw
	}
}
