// Package httpx wraps collaborator HTTP calls with bounded exponential
// backoff. Requests are rebuilt per attempt so bodies survive retries.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client is a shared http.Client with a sane per-request timeout.
var Client = &http.Client{Timeout: 30 * time.Second}

// DoJSON performs the request produced by newReq, retrying server errors and
// transport failures with exponential backoff, and decodes the response body
// into target. 4xx responses are not retried.
func DoJSON(client *http.Client, maxElapsed time.Duration, newReq func() (*http.Request, error), target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	var lastErr error
	op := func() error {
		req, err := newReq()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %s", string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("request failed: status=%d body=%s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		if len(body) == 0 {
			lastErr = fmt.Errorf("empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return lastErr
		}
		lastErr = nil
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

// Download streams a GET response to w, retrying transient failures.
func Download(client *http.Client, maxElapsed time.Duration, url string, w io.Writer) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	var lastErr error
	op := func() error {
		resp, err := client.Get(url)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			lastErr = fmt.Errorf("download failed: status=%d body=%s", resp.StatusCode, string(body))
			if resp.StatusCode < 500 {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			lastErr = err
			return err
		}
		lastErr = nil
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
