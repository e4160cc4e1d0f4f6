package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/httpclient"
)

// GatewaySender posts messages as JSON to an HTTP SMS or email gateway.
type GatewaySender struct {
	channel domain.Channel
	url     string
	apiKey  string
	client  *httpclient.Client
}

func NewGatewaySender(channel domain.Channel, url, apiKey string, client *httpclient.Client) *GatewaySender {
	return &GatewaySender{channel: channel, url: url, apiKey: apiKey, client: client}
}

func (s *GatewaySender) Name() string {
	return string(s.channel) + "-gateway"
}

func (s *GatewaySender) Send(ctx context.Context, msg *Message) error {
	headers := map[string]string{}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}
	resp, err := s.client.PostJSON(ctx, s.url, msg, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("gateway rejected message: status %d", resp.StatusCode)
	}
	return nil
}
