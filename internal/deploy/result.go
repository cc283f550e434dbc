package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultFormatterURL is the auxiliary text-formatting endpoint that turns a
// structured result into prose. Best effort only.
const defaultFormatterURL = "https://pages.api.edgeone.app/format"

// Formatter renders a deployment result for humans.
type Formatter struct {
	endpoint   string
	httpClient *http.Client
}

// NewFormatter creates a formatter against the default remote endpoint.
func NewFormatter() *Formatter {
	return NewFormatterWithURL(defaultFormatterURL)
}

// NewFormatterWithURL creates a formatter against a specific endpoint.
func NewFormatterWithURL(endpoint string) *Formatter {
	return &Formatter{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Render returns the final text block for a successful run: the humanized
// result (falling back to raw JSON when the remote formatter is unreachable)
// followed by the deduplicated run transcript. A formatter failure never
// fails the deployment; it already succeeded.
func (f *Formatter) Render(ctx context.Context, result *Result, log *RunLog) string {
	text := f.humanize(ctx, result)
	if text == "" {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			raw = []byte(fmt.Sprintf("deployed: %s", result.URL))
		}
		text = string(raw)
	}

	transcript := log.Transcript()
	if transcript == "" {
		return text
	}
	return text + "\n\n" + transcript
}

// humanize asks the remote formatting service for prose. Any failure returns
// an empty string so the caller falls back to raw output.
func (f *Formatter) humanize(ctx context.Context, result *Result) string {
	body, err := json.Marshal(map[string]string{
		"type": result.Type,
		"url":  result.URL,
	})
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	var data struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return ""
	}
	return data.Text
}
