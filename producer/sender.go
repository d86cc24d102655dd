package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	v1 "orderbridge/contracts/gen/events/v1"
)

// sender posts a single envelope to the broker's ingest endpoint.
type sender struct {
	client    *http.Client
	bridgeURL string
	apiKey    string
}

func newSender(bridgeURL, apiKey string, timeout time.Duration) *sender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &sender{
		client:    &http.Client{Timeout: timeout},
		bridgeURL: bridgeURL,
		apiKey:    apiKey,
	}
}

func (s *sender) Send(ctx context.Context, envelope v1.TradeEventEnvelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.bridgeURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", envelope.SourceID)
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("broker responded with status %d", resp.StatusCode)
	}
	return nil
}
