package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

// DefaultTimeout bounds a single provider call when no timeout is configured
const DefaultTimeout = 10 * time.Second

// NewHTTPClient creates a new HTTP client for a single provider.
// Each provider is attempted exactly once per stage, so retries are disabled;
// degradation is handled by the stage itself.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)

	return client
}

// CheckResponse converts the outcome of a resty call into a FetchError, or nil
// when the provider answered with a 2xx status and a decodable body.
func CheckResponse(provider string, resp *resty.Response, err error) error {
	ferr := checkResponse(resp, err)
	if ferr != nil {
		slog.Debug("provider call failed",
			"provider", provider,
			"error_type", string(ferr.Type),
			"retryable", ferr.Retryable,
			"error", ferr.Error())
		return ferr
	}

	slog.Debug("provider call completed",
		"provider", provider,
		"status_code", resp.StatusCode())
	return nil
}

func checkResponse(resp *resty.Response, err error) *FetchError {
	if err != nil {
		// A status code means the exchange completed and decoding failed.
		if resp != nil && resp.StatusCode() > 0 {
			if !resp.IsSuccess() {
				return ClassifyHTTPError(resp.StatusCode())
			}
			fe := NewValidationError("malformed response body")
			fe.Cause = err
			return fe
		}
		return ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return ClassifyHTTPError(resp.StatusCode())
	}

	return nil
}
