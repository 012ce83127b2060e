package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/rs/zerolog"
)

// SubmitTokenHeader authenticates pack uploads against the collection
// endpoint. Shared secret, same value on both sides.
const SubmitTokenHeader = "X-Submit-Token"

// RemoteTransport POSTs the pack as JSON to a collection endpoint.
type RemoteTransport struct {
	url        string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewRemoteTransport creates a RemoteTransport for the given endpoint.
func NewRemoteTransport(url, token string, log zerolog.Logger) *RemoteTransport {
	return &RemoteTransport{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "remote_transport").Logger(),
	}
}

func (t *RemoteTransport) Name() string { return "remote" }

// Deliver uploads the pack. Any non-2xx status is a delivery failure — the
// pack is not considered sent and the submission record must not be written.
func (t *RemoteTransport) Deliver(ctx context.Context, pack *model.ResultPack) error {
	body, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("marshal pack: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set(SubmitTokenHeader, t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post pack: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collection endpoint returned status %d", resp.StatusCode)
	}

	t.log.Info().
		Str("variant", pack.Variant).
		Int("answers", len(pack.Answers)).
		Msg("Pack delivered")
	return nil
}
