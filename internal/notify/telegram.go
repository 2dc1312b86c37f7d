package notify

import (
	"encoding/json"
	"fmt"

	"github.com/evrokas/route-tracker/internal/config"
)

// TelegramChannel posts to the bot sendMessage endpoint, once per
// configured chat id.
type TelegramChannel struct {
	cfg config.TelegramConfig
}

func NewTelegramChannel(cfg config.TelegramConfig) *TelegramChannel {
	return &TelegramChannel{cfg: cfg}
}

func (t *TelegramChannel) Name() string { return "telegram" }

// Send posts the body to every chat id. Per-id success requires a
// response carrying an "ok" field; any missing or failed id makes the
// whole channel outcome false.
func (t *TelegramChannel) Send(subject, body string) (bool, error) {
	if !t.cfg.Enabled || t.cfg.BotToken == "" || len(t.cfg.ChatIDs) == 0 {
		return false, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIURL, t.cfg.BotToken)
	ok := true

	for _, chatID := range t.cfg.ChatIDs {
		payload, err := json.Marshal(map[string]string{
			"chat_id":    chatID,
			"text":       body,
			"parse_mode": "HTML",
		})
		if err != nil {
			return false, fmt.Errorf("failed to encode telegram payload: %w", err)
		}

		resp, err := httpPost(url, payload, nil)
		if err != nil || len(resp) == 0 {
			ok = false
			continue
		}

		var parsed map[string]json.RawMessage
		if err := json.Unmarshal(resp, &parsed); err != nil {
			ok = false
			continue
		}
		if _, has := parsed["ok"]; !has {
			ok = false
		}
	}

	return ok, nil
}
