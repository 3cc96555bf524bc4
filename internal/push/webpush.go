// Package push delivers notification payloads to browsers over Web Push.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/fitbarca/reminders/internal/domain"
)

// ErrSubscriptionGone marks a subscription the push provider reported as
// permanently invalid (410 Gone or 404). Callers clear the stored
// subscription on this error.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Payload is the JSON shape the service-worker client expects.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	Tag   string `json:"tag"`
}

// Sender sends one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *domain.PushSubscription, p Payload) error
}

// WebPush implements Sender using VAPID-authenticated Web Push.
type WebPush struct {
	opts webpush.Options
}

// NewWebPush builds a sender from the VAPID key pair and the contact URI the
// push provider requires from senders.
func NewWebPush(publicKey, privateKey, subscriber string) *WebPush {
	return &WebPush{opts: webpush.Options{
		Subscriber:      subscriber,
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		TTL:             60 * 60, // reminders are pointless a day later
	}}
}

// Send pushes the payload. A 404/410 response maps to ErrSubscriptionGone;
// other non-2xx statuses are plain errors.
func (w *WebPush) Send(ctx context.Context, sub *domain.PushSubscription, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	opts := w.opts
	resp, err := webpush.SendNotificationWithContext(ctx, body, s, &opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrSubscriptionGone)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push send status %d: %s", resp.StatusCode, detail)
	}
}
