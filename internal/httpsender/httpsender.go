// Package httpsender ships drained telemetry payloads to the collector as
// HTTP multipart form uploads.
package httpsender

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/hyp3rd/ewrap"
)

const (
	// formField is the multipart field name the collector expects.
	formField = "telemetry"
	// formFilename is the filename reported for the uploaded buffer.
	formFilename = "buffer.bin"

	// maxDrainBytes caps how much of an error response body is read before
	// the connection is released.
	maxDrainBytes = 4096
)

// Config holds configuration for a Sender.
type Config struct {
	// ServerURL is the collector endpoint the payloads are posted to.
	ServerURL string
	// Client is the HTTP client used for uploads; it owns the timeout
	// policy. http.DefaultClient is used when nil.
	Client *http.Client
}

// Sender posts payloads to a single collector endpoint. A send either
// succeeds in full or reports an error meaning nothing was delivered; the
// caller owns any retry policy.
type Sender struct {
	serverURL string
	client    *http.Client
}

// New creates a Sender for the configured collector endpoint.
func New(cfg Config) (*Sender, error) {
	if cfg.ServerURL == "" {
		return nil, ewrap.New("collector URL is required")
	}

	parsed, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, ewrap.Wrapf(err, "parsing collector URL").
			WithMetadata("url", cfg.ServerURL)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, ewrap.New("collector URL must be http or https").
			WithMetadata("url", cfg.ServerURL)
	}

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	return &Sender{
		serverURL: cfg.ServerURL,
		client:    client,
	}, nil
}

// Send uploads one payload as a multipart form. Any transport error,
// context cancellation, or non-2xx response is a failed send.
func (s *Sender) Send(ctx context.Context, data []byte) error {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile(formField, formFilename)
	if err != nil {
		return ewrap.Wrap(err, "building multipart form")
	}

	_, err = part.Write(data)
	if err != nil {
		return ewrap.Wrap(err, "writing payload to form")
	}

	err = form.Close()
	if err != nil {
		return ewrap.Wrap(err, "finalizing multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL, body)
	if err != nil {
		return ewrap.Wrapf(err, "building upload request").
			WithMetadata("url", s.serverURL)
	}

	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return ewrap.Wrapf(err, "posting payload").
			WithMetadata("url", s.serverURL)
	}

	defer func() {
		// Drain so the transport can reuse the connection.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return ewrap.New("collector rejected upload").
			WithMetadata("url", s.serverURL).
			WithMetadata("status", resp.StatusCode)
	}

	return nil
}
