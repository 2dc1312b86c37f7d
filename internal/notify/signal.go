package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evrokas/route-tracker/internal/config"
)

// SignalChannel posts once to a local signal-cli REST gateway, which
// fans out to all recipients itself.
type SignalChannel struct {
	cfg config.SignalConfig
}

func NewSignalChannel(cfg config.SignalConfig) *SignalChannel {
	return &SignalChannel{cfg: cfg}
}

func (s *SignalChannel) Name() string { return "signal" }

// Send posts the message once with the full recipient list. Success is
// any non-empty response from the gateway.
func (s *SignalChannel) Send(subject, body string) (bool, error) {
	if !s.cfg.Enabled || s.cfg.SenderNumber == "" || len(s.cfg.RecipientNumbers) == 0 {
		return false, nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"message":    body,
		"number":     s.cfg.SenderNumber,
		"recipients": s.cfg.RecipientNumbers,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode signal payload: %w", err)
	}

	url := strings.TrimRight(s.cfg.APIURL, "/") + "/v2/send"
	resp, err := httpPost(url, payload, nil)
	if err != nil {
		return false, err
	}
	return len(resp) > 0, nil
}
