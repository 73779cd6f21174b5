package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

// Sentinel errors for Drive fetch failures.
var (
	ErrDriveUnreachable = errors.New("drive unreachable")
	ErrDriveStatus      = errors.New("drive request failed")
	ErrDriveTimeout     = errors.New("drive fetch timeout")
)

// fileIDPattern matches the two share-link shapes clients paste into
// projects: a /d/<ID> path segment or an id=<ID> query parameter.
var fileIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)|[?&]id=([a-zA-Z0-9_-]+)`)

// ExtractFileID pulls the Drive file identifier out of a share URL.
// Returns false if the URL carries no recognizable identifier.
func ExtractFileID(rawURL string) (string, bool) {
	m := fileIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	if m[2] != "" {
		return m[2], true
	}
	return "", false
}

// FetchError reports that both the authenticated API fetch and the public
// fallback failed for a file. Both causes are kept so the archive's error
// placeholder can reference them.
type FetchError struct {
	FileID   string
	Primary  error
	Fallback error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v | Fallback: %v", e.Primary, e.Fallback)
}

func (e *FetchError) Unwrap() error { return e.Primary }

// Client is the interface for resolving photo bytes from cloud storage.
type Client interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// HTTPClient implements Client against the Drive v3 HTTP API with a public
// download-URL fallback. One attempt per path, no retries.
type HTTPClient struct {
	apiBaseURL      string
	apiKey          string
	fallbackBaseURL string
	client          *http.Client
}

// NewHTTPClient creates a Drive client. timeout caps each individual fetch.
func NewHTTPClient(apiBaseURL, apiKey, fallbackBaseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		apiBaseURL:      apiBaseURL,
		apiKey:          apiKey,
		fallbackBaseURL: fallbackBaseURL,
		client:          &http.Client{Timeout: timeout},
	}
}

// Fetch resolves the file's bytes: authenticated media endpoint first, then
// the unauthenticated export=download URL. If both fail it returns a
// *FetchError carrying both causes.
func (c *HTTPClient) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	rc, primaryErr := c.fetchMedia(ctx, fileID)
	if primaryErr == nil {
		return rc, nil
	}

	rc, fallbackErr := c.fetchPublic(ctx, fileID)
	if fallbackErr == nil {
		return rc, nil
	}

	return nil, &FetchError{FileID: fileID, Primary: primaryErr, Fallback: fallbackErr}
}

func (c *HTTPClient) fetchMedia(ctx context.Context, fileID string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/drive/v3/files/%s?alt=media&key=%s",
		c.apiBaseURL, url.PathEscape(fileID), url.QueryEscape(c.apiKey))
	return c.get(ctx, u)
}

func (c *HTTPClient) fetchPublic(ctx context.Context, fileID string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/uc?export=download&id=%s",
		c.fallbackBaseURL, url.QueryEscape(fileID))
	return c.get(ctx, u)
}

func (c *HTTPClient) get(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrDriveStatus, resp.StatusCode)
	}

	return resp.Body, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrDriveTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrDriveTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrDriveUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrDriveUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
