package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const httpMaxResponseSize = 1 << 20 // 1 MB

// HTTPStatusError is returned by HTTPGet for every non 2xx response so that
// callers can map status codes into their own failure taxonomy.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d: %s", e.StatusCode, e.Body)
}

type httpGetOptions struct {
	client  *http.Client
	headers map[string]string
}

type HTTPGetOption func(*httpGetOptions)

func WithHTTPClient(client *http.Client) HTTPGetOption {
	return func(o *httpGetOptions) {
		o.client = client
	}
}

func WithHTTPHeader(key, value string) HTTPGetOption {
	return func(o *httpGetOptions) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}

		o.headers[key] = value
	}
}

// HTTPGet executes a GET request and decodes the JSON response body into TReturn.
func HTTPGet[TReturn any](ctx context.Context, requestURL string, opts ...HTTPGetOption) (TReturn, error) {
	var value TReturn

	options := &httpGetOptions{
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(options)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return value, fmt.Errorf("failed to create request for %s: %w", requestURL, err)
	}

	req.Header.Set("Accept", "application/json")

	for key, headerValue := range options.headers {
		req.Header.Set(key, headerValue)
	}

	resp, err := options.client.Do(req)
	if err != nil {
		return value, err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, httpMaxResponseSize))
	if err != nil {
		return value, fmt.Errorf("failed to read response from %s: %w", requestURL, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return value, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, &value); err != nil {
		return value, fmt.Errorf("failed to decode response from %s: %w", requestURL, err)
	}

	return value, nil
}
