package quizbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/rs/zerolog"
)

// LoadError is a fatal question-bank load failure. It carries enough
// diagnostic detail for the full-screen error view; the only recovery is
// fixing the source and reloading.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load question bank from %s: %s", e.Source, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Client fetches and caches the question bank for the configured variant.
// The bank is read once at startup and is immutable afterwards; the session
// core never writes to it.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a question-bank client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "quizbank").Logger(),
	}
}

// Load fetches the question bank from dataURL. HTTP(S) URLs are fetched
// with caching disabled; anything else is read as a local file path. A
// missing or empty tasks array is tolerated — the session layer disables
// interaction instead of failing.
func (c *Client) Load(ctx context.Context, dataURL string) (*model.QuestionBank, error) {
	var raw []byte
	var err error

	if strings.HasPrefix(dataURL, "http://") || strings.HasPrefix(dataURL, "https://") {
		raw, err = c.fetch(ctx, dataURL)
	} else {
		raw, err = os.ReadFile(dataURL)
		if err != nil {
			err = &LoadError{Source: dataURL, Reason: "read file", Err: err}
		}
	}
	if err != nil {
		return nil, err
	}

	var bank model.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, &LoadError{Source: dataURL, Reason: "malformed JSON", Err: err}
	}

	if len(bank.Tasks) == 0 {
		c.log.Warn().Str("data_url", dataURL).Msg("Question bank has no tasks")
	} else {
		c.log.Info().
			Str("variant", bank.Meta.Variant).
			Int("tasks", len(bank.Tasks)).
			Msg("Question bank loaded")
	}

	return &bank, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LoadError{Source: url, Reason: "build request", Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &LoadError{Source: url, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Source: url, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Source: url, Reason: "read body", Err: err}
	}
	return raw, nil
}
