package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiGet and apiPost are a trimmed version of tdns/apiclient.go's
// ApiClient: ixfrctl talks to exactly one server per invocation with
// a plain API-key header, so there is no need for the teacher's
// TLS/mTLS client object, only the request/response plumbing.
var httpClient = &http.Client{Timeout: 10 * time.Second}

func apiGet(path string, out interface{}) error {
	return apiDo(http.MethodGet, path, nil, out)
}

func apiPost(path string, body interface{}, out interface{}) error {
	return apiDo(http.MethodPost, path, body, out)
}

func apiDo(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, Globals.Server+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", Globals.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", Globals.Server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, string(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
