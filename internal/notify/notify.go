// Package notify delivers alert messages through the configured
// channels: direct SMTP email, Telegram, Viber and Signal. Channels are
// independent failure domains; one failing never stops the others.
package notify

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Channel is one notification transport. Send returns (false, nil) for
// a soft failure (misconfiguration, rejected message) and a non-nil
// error for a hard one (connect failure, timeout).
type Channel interface {
	Name() string
	Send(subject, body string) (bool, error)
}

// Outcome is the logged result of one delivery attempt.
type Outcome struct {
	Channel string
	Status  string // "OK", "FAIL" or "ERROR: <detail>"
}

// Dispatcher fans a message out to a set of named channels.
type Dispatcher struct {
	channels map[string]Channel
}

// NewDispatcher builds a dispatcher over the given channels.
func NewDispatcher(channels ...Channel) *Dispatcher {
	m := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		m[ch.Name()] = ch
	}
	return &Dispatcher{channels: m}
}

// Dispatch attempts delivery on every named channel independently and
// logs each attempt with the route id. A name with no constructed
// channel yields a FAIL outcome, not an error.
func (d *Dispatcher) Dispatch(names []string, subject, body, routeID string) []Outcome {
	outcomes := make([]Outcome, 0, len(names))
	for _, name := range names {
		var status string
		if ch, ok := d.channels[name]; ok {
			sent, err := ch.Send(subject, body)
			switch {
			case err != nil:
				status = "ERROR: " + err.Error()
			case sent:
				status = "OK"
			default:
				status = "FAIL"
			}
		} else {
			status = "FAIL"
		}
		log.Printf("Alert [%s] route=%s status=%s", name, routeID, status)
		outcomes = append(outcomes, Outcome{Channel: name, Status: status})
	}
	return outcomes
}

// webhookClient is shared by the HTTP-based channels.
var webhookClient = &http.Client{Timeout: 15 * time.Second}

// httpPost posts a JSON payload and returns the response body, or nil
// on transport failure.
func httpPost(url string, payload []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := webhookClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http post failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
