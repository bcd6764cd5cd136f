package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/dfslink/dfslink/internal/config"
	"github.com/dfslink/dfslink/internal/http"
	"github.com/dfslink/dfslink/internal/models"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct{}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Msgf("[retry] %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Errors and warnings only
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Errors and warnings only
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Msgf("[retry] %s %v", msg, keysAndValues)
}

// Client talks to the DFS gateway.
//
// Two transports: the plain client serves directory listings, which must
// surface failures to the navigator unmodified (retry is the navigator's
// policy, not the transport's); the retrying client serves one-shot
// mutations (rename, delete, create-directory) and the health probe, where
// transparent retries on transient failures are wanted. Uploads use a third
// transport with no overall timeout.
type Client struct {
	plainClient    *nethttp.Client
	retryClient    *nethttp.Client
	transferClient *nethttp.Client
	config         *config.Config
	baseURL        string
	token          string
}

// NewClient creates a gateway client from the given configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	plainClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	transferClient, err := http.ConfigureTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transfer client: %w", err)
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient, err = http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure retrying client: %w", err)
	}
	rc.RetryMax = 4
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = &retryLogger{}

	return &Client{
		plainClient:    plainClient,
		retryClient:    rc.StandardClient(),
		transferClient: transferClient,
		config:         cfg,
		baseURL:        cfg.BaseURL(),
		token:          cfg.AuthToken,
	}, nil
}

// GetConfig returns the configuration used by this client.
func (c *Client) GetConfig() *config.Config {
	return c.config
}

// newRequest builds a request with auth headers applied.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// statusError drains the response body into a RemoteError.
func statusError(resp *nethttp.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	// The gateway wraps most failures in {"error": ...} or {"message": ...}.
	var envelope models.GatewayResponse
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			message = envelope.Error
		} else if envelope.Message != "" {
			message = envelope.Message
		}
	}

	return &RemoteError{StatusCode: resp.StatusCode, Message: message}
}

// decodeJSON decodes a success payload, mapping parse failures to
// ErrMalformedResponse.
func decodeJSON(resp *nethttp.Response, v interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Browse lists a directory. No retries: listing failures belong to the
// navigator, which decides whether and when to refetch.
func (c *Client) Browse(ctx context.Context, dir string) (*models.BrowseResponse, error) {
	query := url.Values{}
	query.Set("dir", dir)

	req, err := c.newRequest(ctx, "GET", "/browse?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.plainClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("browse request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var listing models.BrowseResponse
	if err := decodeJSON(resp, &listing); err != nil {
		return nil, err
	}
	if listing.Files == nil && listing.Directories == nil {
		return nil, fmt.Errorf("%w: missing files and directories", ErrMalformedResponse)
	}
	return &listing, nil
}

// Upload streams one file to the gateway as multipart form data.
// The progress callback receives the cumulative byte count as the request
// body is consumed; ctx cancels the transfer mid-flight.
func (c *Client) Upload(ctx context.Context, dir, name string, payload io.Reader, size int64, progress func(sent int64)) (*models.GatewayResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := payload
		if progress != nil {
			src = &countingReader{r: payload, report: progress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("directory", dir); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := c.newRequest(ctx, "POST", "/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.transferClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var result models.GatewayResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Download streams a remote file into w, reporting received bytes through
// the progress callback.
func (c *Client) Download(ctx context.Context, path string, w io.Writer, progress func(received int64)) error {
	req, err := c.newRequest(ctx, "GET", "/download"+escapePath(path), nil)
	if err != nil {
		return err
	}

	resp, err := c.transferClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	var src io.Reader = resp.Body
	if progress != nil {
		src = &countingReader{r: resp.Body, report: progress}
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("download interrupted: %w", err)
	}
	return nil
}

// Rename moves a file from oldPath to newPath. Form-encoded per the
// gateway contract.
func (c *Client) Rename(ctx context.Context, oldPath, newPath string) (*models.GatewayResponse, error) {
	form := url.Values{}
	form.Set("old_path", oldPath)
	form.Set("new_path", newPath)

	req, err := c.newRequest(ctx, "POST", "/rename", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.doEnvelope(req)
}

// Delete removes a remote file. The target path rides in the URL.
func (c *Client) Delete(ctx context.Context, path string) (*models.GatewayResponse, error) {
	req, err := c.newRequest(ctx, "POST", "/delete"+escapePath(path), nil)
	if err != nil {
		return nil, err
	}
	return c.doEnvelope(req)
}

// CreateDirectory creates a directory on the gateway.
func (c *Client) CreateDirectory(ctx context.Context, path string) (*models.GatewayResponse, error) {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := c.newRequest(ctx, "POST", "/create-directory", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doEnvelope(req)
}

// NodeHealth fetches the per-node health map from the gateway.
func (c *Client) NodeHealth(ctx context.Context) (map[string]models.NodeHealth, error) {
	req, err := c.newRequest(ctx, "GET", "/admin/dashboard", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.retryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var health map[string]models.NodeHealth
	if err := decodeJSON(resp, &health); err != nil {
		return nil, err
	}
	return health, nil
}

// SessionStatus probes the gateway's session endpoint.
func (c *Client) SessionStatus(ctx context.Context) (*models.SessionStatus, error) {
	req, err := c.newRequest(ctx, "GET", "/", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.retryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var status models.SessionStatus
	if err := decodeJSON(resp, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// doEnvelope runs a mutation through the retrying client and decodes the
// gateway's success envelope.
func (c *Client) doEnvelope(req *nethttp.Request) (*models.GatewayResponse, error) {
	resp, err := c.retryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var result models.GatewayResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// escapePath percent-encodes each segment of a slash path while keeping
// the separators literal, as the gateway routes on them.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// countingReader reports cumulative bytes read through it.
type countingReader struct {
	r      io.Reader
	count  int64
	report func(int64)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.count += int64(n)
		cr.report(cr.count)
	}
	return n, err
}
