package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// WebhookSharer announces stored artifacts to a webhook.
type WebhookSharer struct {
	url    string
	client *http.Client
}

type sharePayload struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Location string `json:"location"`
	Size     int    `json:"size"`
}

// NewWebhookSharer constructs a sharer.
func NewWebhookSharer(url string) *WebhookSharer {
	return &WebhookSharer{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Share posts the artifact metadata. An empty url or an unreachable endpoint is ErrShareUnavailable.
func (s *WebhookSharer) Share(ctx context.Context, artifact Artifact, location string) error {
	if s == nil || s.url == "" {
		return ErrShareUnavailable
	}
	body, err := json.Marshal(sharePayload{
		Filename: artifact.Filename,
		MIMEType: artifact.MIMEType,
		Location: location,
		Size:     len(artifact.Content),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return fmt.Errorf("%w: %v", ErrShareUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusServiceUnavailable {
		return ErrShareUnavailable
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sharer: status %d", resp.StatusCode)
	}
	return nil
}
