package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Options are recognition hints forwarded to the sidecar. They only affect
// processing speed; the extraction contract is unchanged.
type Options struct {
	// Grayscale asks the sidecar to drop color before recognition.
	Grayscale bool
	// MaxWidth asks the sidecar to downscale wider images. Zero disables.
	MaxWidth int
}

// Client talks to a Tesseract sidecar service. It implements Factory: each
// session maps to a sidecar worker holding loaded language data.
type Client struct {
	baseURL string
	client  *http.Client
	opts    Options
}

func NewClient(baseURL string, opts Options) *Client {
	return &Client{
		baseURL: baseURL,
		// No client-level timeout: the per-call deadline comes from the
		// request context set by the Extractor.
		client: &http.Client{},
		opts:   opts,
	}
}

type sessionResponse struct {
	ID string `json:"id"`
}

type recognizeResponse struct {
	Text string `json:"text"`
}

func (c *Client) NewSession(ctx context.Context) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d creating session", resp.StatusCode)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}

	return &remoteSession{client: c, id: sr.ID}, nil
}

type remoteSession struct {
	client *Client
	id     string
}

func (s *remoteSession) Recognize(ctx context.Context, image []byte) (string, error) {
	c := s.client

	query := url.Values{}
	if c.opts.Grayscale {
		query.Set("grayscale", "1")
	}

	if c.opts.MaxWidth > 0 {
		query.Set("max_width", strconv.Itoa(c.opts.MaxWidth))
	}

	endpoint := fmt.Sprintf("%s/sessions/%s/recognize", c.baseURL, s.id)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing recognition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var rr recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return "", fmt.Errorf("decoding recognition response: %w", err)
	}

	return rr.Text, nil
}

func (s *remoteSession) Close() error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/sessions/%s", s.client.baseURL, s.id), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.client.Do(req)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}

	resp.Body.Close()

	return nil
}
