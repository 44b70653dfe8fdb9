// Package httpbridge publishes change events by POSTing them to a broker's
// REST bridge (e.g. an MQTT broker HTTP frontend). The topic becomes the
// request path.
package httpbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Publisher implements notify.Publisher over HTTP.
type Publisher struct {
	client *resty.Client
}

// New creates a publisher for the given bridge base URL. Requests are
// bounded so a slow broker cannot stall callers for long; the notifier
// swallows the timeout error either way.
func New(baseURL string) *Publisher {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(0)
	return &Publisher{client: c}
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/" + topic)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("broker bridge returned %s", resp.Status())
	}
	return nil
}
