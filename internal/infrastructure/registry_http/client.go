package registry_http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tagship/tagship/internal/domain"
)

// Client talks to the package registry. The version-exists preflight
// is an idempotent GET and is retried on transient faults; the publish
// POST is sent exactly once and never retried, whatever happens.
type Client struct {
	baseUrl string
	pkg     string
	hc      *http.Client
}

func New(baseUrl, pkg string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseUrl: trimSlash(baseUrl),
		pkg:     pkg,
		hc:      &http.Client{Transport: tr, Timeout: timeout},
	}
}

// errAuthRejected marks a rejected credential on the preflight so the
// caller can report "fix the token" instead of "registry down".
var errAuthRejected = errors.New("auth rejected")

type receiptDTO struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Location string `json:"location"`
}

func (c *Client) Publish(ctx context.Context, a domain.Artifact, cred domain.Credential) (domain.PublishReceipt, error) {
	version := a.Version.String()

	exists, err := c.exists(ctx, version)
	if err != nil {
		kind := domain.PublishUnavailable
		if errors.Is(err, errAuthRejected) {
			kind = domain.PublishAuthRejected
		}
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: kind, Version: version, Err: err,
		}
	}
	if exists {
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishAlreadyExists, Version: version,
		}
	}

	body, err := os.Open(a.Path)
	if err != nil {
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishValidation, Version: version, Err: err,
		}
	}
	defer func() { _ = body.Close() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.versionURL(version), body)
	if err != nil {
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishUnavailable, Version: version, Err: err,
		}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token())
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishUnavailable, Version: version, Err: err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishAlreadyExists, Version: version,
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishAuthRejected, Version: version,
			Err: fmt.Errorf("registry %s", resp.Status),
		}
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishValidation, Version: version,
			Err: fmt.Errorf("registry %s", resp.Status),
		}
	case resp.StatusCode >= 300:
		return domain.PublishReceipt{}, &domain.PublishError{
			Kind: domain.PublishUnavailable, Version: version,
			Err: fmt.Errorf("registry %s", resp.Status),
		}
	}

	var dto receiptDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		// The registry accepted the package; a malformed receipt must
		// not look like a failed publish.
		dto = receiptDTO{Version: version}
	}
	if dto.Version == "" {
		dto.Version = version
	}

	return domain.PublishReceipt{ID: dto.ID, Version: dto.Version, Location: dto.Location}, nil
}

func (c *Client) exists(ctx context.Context, version string) (bool, error) {
	var found bool

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.versionURL(version), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			found = true
			return nil
		case resp.StatusCode == http.StatusNotFound:
			found = false
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: registry %s", errAuthRejected, resp.Status))
		case resp.StatusCode >= 500:
			return fmt.Errorf("registry %s", resp.Status)
		default:
			return backoff.Permanent(fmt.Errorf("registry %s", resp.Status))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 5 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return false, err
	}
	return found, nil
}

func (c *Client) versionURL(version string) string {
	return fmt.Sprintf("%s/api/v1/packages/%s/versions/%s", c.baseUrl, c.pkg, version)
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}
