package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/sethvargo/go-retry"
)

// HTTPClient implements Client over the JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   string
	log     logging.Logger
}

// NewHTTPClient returns an API client for the given base URL. Network calls
// are bounded by timeout so a stalled link surfaces as ErrTimeout instead of
// hanging a sync pass.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// SetToken installs the access token sent on subsequent requests.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("failed to decode login response: %w", err)
		}
		c.token = out.Token
		return out.Token, nil
	case http.StatusUnauthorized:
		return "", common.ErrUnauthorized
	default:
		return "", c.unexpectedStatus(resp)
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/ping", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.unexpectedStatus(resp)
	}
	return nil
}

// CheckSubmission is idempotent, so transient transport failures are retried
// with a short backoff before giving up.
func (c *HTTPClient) CheckSubmission(ctx context.Context, formID, localID string) (*models.SubmissionRecord, error) {
	path := fmt.Sprintf("/api/v1/submissions/check/%s/%s",
		url.PathEscape(formID), url.PathEscape(localID))

	var rec *models.SubmissionRecord

	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			if errors.Is(err, common.ErrNetwork) {
				return retry.RetryableError(err)
			}
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			rec = &models.SubmissionRecord{}
			if err := json.NewDecoder(resp.Body).Decode(rec); err != nil {
				return fmt.Errorf("failed to decode check response: %w", err)
			}
			return nil
		case http.StatusNoContent, http.StatusNotFound:
			rec = nil
			return nil
		case http.StatusUnauthorized:
			return common.ErrUnauthorized
		default:
			err := c.unexpectedStatus(resp)
			if errors.Is(err, common.ErrNetwork) {
				return retry.RetryableError(err)
			}
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *HTTPClient) CreateSubmission(ctx context.Context, rec *models.SubmissionRecord) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/submissions", rec)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var out struct {
			ServerID string `json:"server_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("failed to decode create response: %w", err)
		}
		return out.ServerID, nil

	case http.StatusConflict:
		// The body carries the server's current version of the record.
		server := &models.SubmissionRecord{}
		if err := json.NewDecoder(resp.Body).Decode(server); err != nil {
			return "", fmt.Errorf("failed to decode conflict body: %w", err)
		}
		return "", &ConflictError{Server: server}

	case http.StatusUnauthorized:
		return "", common.ErrUnauthorized

	default:
		return "", c.unexpectedStatus(resp)
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	return resp, nil
}

// classifyTransportError separates slow links from dead ones: timeouts map
// to ErrTimeout, everything else transport-level to ErrNetwork. Both are
// transient for sync purposes.
func (c *HTTPClient) classifyTransportError(ctx context.Context, err error) error {
	var uerr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	case errors.As(err, &uerr) && uerr.Timeout():
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	default:
		c.log.Debug(ctx, "transport failure", "error", err)
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
}

// unexpectedStatus maps a non-success status to the error taxonomy: 5xx is
// transient (server may recover), definitive 4xx rejections are not.
func (c *HTTPClient) unexpectedStatus(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %s: %s", common.ErrNetwork, resp.Status, string(b))
	}
	return fmt.Errorf("%w: status %s: %s", common.ErrServerRejected, resp.Status, string(b))
}
