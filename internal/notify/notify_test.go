package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evrokas/route-tracker/internal/config"
)

type stubChannel struct {
	name string
	sent bool
	err  error
	hits int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(subject, body string) (bool, error) {
	s.hits++
	return s.sent, s.err
}

func TestDispatchOutcomes(t *testing.T) {
	ok := &stubChannel{name: "telegram", sent: true}
	soft := &stubChannel{name: "viber", sent: false}
	hard := &stubChannel{name: "signal", err: errors.New("connection refused")}

	d := NewDispatcher(ok, soft, hard)
	outcomes := d.Dispatch([]string{"telegram", "viber", "signal", "email"}, "subj", "body", "dad_work")

	require.Len(t, outcomes, 4)
	assert.Equal(t, Outcome{Channel: "telegram", Status: "OK"}, outcomes[0])
	assert.Equal(t, Outcome{Channel: "viber", Status: "FAIL"}, outcomes[1])
	assert.Equal(t, "signal", outcomes[2].Channel)
	assert.Equal(t, "ERROR: connection refused", outcomes[2].Status)
	// email was never constructed: FAIL, not a panic or an error.
	assert.Equal(t, Outcome{Channel: "email", Status: "FAIL"}, outcomes[3])
}

func TestDispatchOneFailureNeverStopsTheRest(t *testing.T) {
	first := &stubChannel{name: "telegram", err: errors.New("boom")}
	second := &stubChannel{name: "viber", sent: true}

	d := NewDispatcher(first, second)
	d.Dispatch([]string{"telegram", "viber"}, "s", "b", "r")

	assert.Equal(t, 1, first.hits)
	assert.Equal(t, 1, second.hits)
}

func TestTelegramSend(t *testing.T) {
	var requests []map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok123/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		requests = append(requests, payload)
		w.Write([]byte(`{"ok": true, "result": {}}`))
	}))
	defer server.Close()

	ch := NewTelegramChannel(config.TelegramConfig{
		Enabled:  true,
		BotToken: "tok123",
		ChatIDs:  []string{"111", "222"},
		APIURL:   server.URL,
	})

	sent, err := ch.Send("subject", "the message")
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, requests, 2)
	assert.Equal(t, "111", requests[0]["chat_id"])
	assert.Equal(t, "222", requests[1]["chat_id"])
	assert.Equal(t, "the message", requests[0]["text"])
	assert.Equal(t, "HTML", requests[0]["parse_mode"])
}

func TestTelegramResponseWithoutOkKeyFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_code": 401, "description": "Unauthorized"}`))
	}))
	defer server.Close()

	ch := NewTelegramChannel(config.TelegramConfig{
		Enabled: true, BotToken: "tok", ChatIDs: []string{"1"}, APIURL: server.URL,
	})

	sent, err := ch.Send("s", "b")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestTelegramDisabledOrUnconfigured(t *testing.T) {
	for _, cfg := range []config.TelegramConfig{
		{Enabled: false, BotToken: "tok", ChatIDs: []string{"1"}},
		{Enabled: true, BotToken: "", ChatIDs: []string{"1"}},
		{Enabled: true, BotToken: "tok"},
	} {
		sent, err := NewTelegramChannel(cfg).Send("s", "b")
		require.NoError(t, err)
		assert.False(t, sent)
	}
}

func TestViberSend(t *testing.T) {
	var tokens []string
	var receivers []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pa/send_message", r.URL.Path)
		tokens = append(tokens, r.Header.Get("X-Viber-Auth-Token"))
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		receivers = append(receivers, payload["receiver"])
		w.Write([]byte(`{"status":0}`))
	}))
	defer server.Close()

	ch := NewViberChannel(config.ViberConfig{
		Enabled:     true,
		AuthToken:   "viber-secret",
		ReceiverIDs: []string{"rcv1", "rcv2"},
		APIURL:      server.URL,
	})

	sent, err := ch.Send("s", "b")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"viber-secret", "viber-secret"}, tokens)
	assert.Equal(t, []string{"rcv1", "rcv2"}, receivers)
}

func TestViberEmptyBodyFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // no body
	}))
	defer server.Close()

	ch := NewViberChannel(config.ViberConfig{
		Enabled: true, AuthToken: "t", ReceiverIDs: []string{"r"}, APIURL: server.URL,
	})

	sent, err := ch.Send("s", "b")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSignalSend(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/send", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.Write([]byte(`{"timestamp": 1234}`))
	}))
	defer server.Close()

	ch := NewSignalChannel(config.SignalConfig{
		Enabled:          true,
		APIURL:           server.URL + "/", // trailing slash is tolerated
		SenderNumber:     "+30123",
		RecipientNumbers: []string{"+30456", "+30789"},
	})

	sent, err := ch.Send("s", "the body")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "the body", payload["message"])
	assert.Equal(t, "+30123", payload["number"])
	assert.Equal(t, []interface{}{"+30456", "+30789"}, payload["recipients"])
}

func TestSignalGatewayDown(t *testing.T) {
	ch := NewSignalChannel(config.SignalConfig{
		Enabled:          true,
		APIURL:           "http://127.0.0.1:1",
		SenderNumber:     "+30123",
		RecipientNumbers: []string{"+30456"},
	})

	sent, err := ch.Send("s", "b")
	assert.False(t, sent)
	assert.Error(t, err)
}
