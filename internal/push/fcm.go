package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultFCMEndpoint is the FCM legacy HTTP send endpoint.
const DefaultFCMEndpoint = "https://fcm.googleapis.com/fcm/send"

var _ Transport = (*FCM)(nil)

// FCM sends notifications through Firebase Cloud Messaging.
type FCM struct {
	serverKey string
	endpoint  string
	client    *http.Client
	log       *zap.Logger
}

func NewFCM(serverKey, endpoint string, timeout time.Duration, log *zap.Logger) *FCM {
	if endpoint == "" {
		endpoint = DefaultFCMEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FCM{
		serverKey: serverKey,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

type fcmRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	// APNS delivery hints: wake the iOS app and show the standard alert.
	ContentAvailable bool `json:"content_available"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
	Badge int    `json:"badge"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

func (p *FCM) Send(ctx context.Context, token string, n Notification) (string, error) {
	body, err := json.Marshal(fcmRequest{
		To: token,
		Notification: fcmNotification{
			Title: n.Title,
			Body:  n.Body,
			Sound: "default",
			Badge: 1,
		},
		Data:             n.Data,
		ContentAvailable: true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.serverKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fcm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fcm: status %d", resp.StatusCode)
	}

	var out fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("fcm: decode response: %w", err)
	}
	if len(out.Results) == 0 {
		return "", fmt.Errorf("fcm: empty results")
	}

	res := out.Results[0]
	if res.Error != "" {
		p.log.Debug("fcm_send_rejected", zap.String("code", res.Error))
		return "", fmt.Errorf("fcm: %s", errorText(res.Error))
	}
	return res.MessageID, nil
}

// errorText turns FCM result codes into readable text. The stale-token codes
// keep the exact wording the dispatcher's classifier matches on.
func errorText(code string) string {
	switch code {
	case "NotRegistered":
		return "device not registered"
	case "InvalidRegistration":
		return "invalid registration token"
	case "MismatchSenderId":
		return "sender id mismatch"
	case "MessageTooBig":
		return "message too big"
	default:
		return code
	}
}
