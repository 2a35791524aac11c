package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from a platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxReasonLength bounds the platform message kept in a failure reason
const maxReasonLength = 500

// platformClient is the HTTP plumbing shared by every adapter of one kind
type platformClient struct {
	kind       integration.PlatformKind
	httpClient *http.Client
	limiter    *rate.Limiter
}

// apiResponse is a raw platform response
type apiResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status
func (r *apiResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// doJSON sends body as JSON and returns the raw response. Transport faults
// come back as error; HTTP error statuses do not.
func (c *platformClient) doJSON(
	ctx context.Context,
	method, url string,
	headers map[string]string,
	body any,
) (*apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s rate limiter: %v", integration.ErrPlatformUnavailable, c.kind, err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", c.kind, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.kind, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", c.kind, err)
	}

	return &apiResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// failure turns an HTTP error response into a Failed result. extract pulls
// the platform's own message out of the body and may return "".
func failure(resp *apiResponse, extract func([]byte) string) integration.SyncResult {
	msg := ""
	if extract != nil {
		msg = extract(resp.Body)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(resp.Body))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return integration.Failed(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncateReason(msg)))
}

// truncateReason keeps at most maxReasonLength bytes of valid UTF-8; the
// reason ends up in a text column that rejects broken sequences.
func truncateReason(msg string) string {
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	if len(msg) <= maxReasonLength {
		return msg
	}
	n := maxReasonLength
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}

// decode parses a success body
func decode(kind integration.PlatformKind, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: failed to parse response: %v", integration.ErrPlatformInvalidResponse, kind, err)
	}
	return nil
}
