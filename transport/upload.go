package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ImageUploader is the boundary to the image upload endpoint, which
// sits outside the GraphQL envelope. The entity adapters that convert
// files to base64 own everything above this interface.
type ImageUploader interface {
	UploadImage(ctx context.Context, name, base64Data string) (string, error)
}

// TokenSource yields the bearer token for the upload call. The store
// satisfies this via a small adapter; tests use a literal.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// HTTPImageUploader posts base64 image payloads to the configured
// upload URL with the current bearer token.
type HTTPImageUploader struct {
	url        string
	tokens     TokenSource
	httpClient *http.Client
}

// NewImageUploader creates an uploader for the given endpoint.
func NewImageUploader(url string, tokens TokenSource, hc *http.Client) (*HTTPImageUploader, error) {
	if url == "" {
		return nil, fmt.Errorf("upload URL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPImageUploader{url: url, tokens: tokens, httpClient: hc}, nil
}

// UploadImage posts the payload and returns the stored image URL.
func (u *HTTPImageUploader) UploadImage(ctx context.Context, name, base64Data string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"name":  name,
		"image": base64Data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.tokens.Token())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Operation: "UploadImage", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Operation: "UploadImage", Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &Error{
			Kind:      KindGraphQL,
			Operation: "UploadImage",
			Messages:  []string{resp.Status},
		}
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return out.URL, nil
}
