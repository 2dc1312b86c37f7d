package notify

import (
	"encoding/json"
	"fmt"

	"github.com/evrokas/route-tracker/internal/config"
)

// ViberChannel posts a text message per configured receiver id through
// the Viber public-account API.
type ViberChannel struct {
	cfg config.ViberConfig
}

func NewViberChannel(cfg config.ViberConfig) *ViberChannel {
	return &ViberChannel{cfg: cfg}
}

func (v *ViberChannel) Name() string { return "viber" }

// Send posts to every receiver. Success per receiver is merely a
// non-empty response body; the API reports its real status inside the
// JSON, which is not validated here.
func (v *ViberChannel) Send(subject, body string) (bool, error) {
	if !v.cfg.Enabled || v.cfg.AuthToken == "" || len(v.cfg.ReceiverIDs) == 0 {
		return false, nil
	}

	url := v.cfg.APIURL + "/pa/send_message"
	headers := map[string]string{"X-Viber-Auth-Token": v.cfg.AuthToken}
	ok := true

	for _, receiver := range v.cfg.ReceiverIDs {
		payload, err := json.Marshal(map[string]string{
			"receiver": receiver,
			"type":     "text",
			"text":     body,
		})
		if err != nil {
			return false, fmt.Errorf("failed to encode viber payload: %w", err)
		}

		resp, err := httpPost(url, payload, headers)
		if err != nil || len(resp) == 0 {
			ok = false
		}
	}

	return ok, nil
}
