package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultUltraMsgURL = "https://api.ultramsg.com"

// UltraMsgConfig holds the UltraMsg instance credentials.
type UltraMsgConfig struct {
	InstanceID string
	Token      string
	BaseURL    string
}

// UltraMsg sends WhatsApp messages through the UltraMsg chat API.
type UltraMsg struct {
	cfg UltraMsgConfig
	hc  *http.Client
}

// NewUltraMsg creates a new UltraMsg notifier. A nil hc uses http.DefaultClient.
func NewUltraMsg(cfg UltraMsgConfig, hc *http.Client) *UltraMsg {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultUltraMsgURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &UltraMsg{cfg: cfg, hc: hc}
}

func (u *UltraMsg) Notify(ctx context.Context, msg Message) Result {
	res := Result{Provider: "ultramsg"}
	if u.cfg.InstanceID == "" || u.cfg.Token == "" {
		res.Error = "missing_credentials"
		return res
	}

	form := url.Values{}
	form.Set("token", u.cfg.Token)
	form.Set("to", cleanUltraMsgNumber(msg.To))
	form.Set("body", msg.Text)

	endpoint := fmt.Sprintf("%s/%s/messages/chat", strings.TrimRight(u.cfg.BaseURL, "/"), u.cfg.InstanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.hc.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	var body map[string]any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		res.Error = fmt.Sprintf("ultramsg status %d: %v", resp.StatusCode, err)
		return res
	}

	sent := fmt.Sprint(body["sent"]) == "true"
	okMsg := strings.Contains(strings.ToLower(fmt.Sprint(body["message"])), "ok")
	if !sent && !okMsg {
		raw, _ := json.Marshal(body)
		res.Error = string(bytes.TrimSpace(raw))
		return res
	}
	res.OK = true
	if id, ok := body["id"]; ok && id != nil {
		res.ID = fmt.Sprint(id)
	}
	return res
}

// cleanUltraMsgNumber strips the whatsapp: scheme, the plus sign and spaces.
func cleanUltraMsgNumber(to string) string {
	to = strings.ReplaceAll(to, "whatsapp:", "")
	to = strings.ReplaceAll(to, "+", "")
	to = strings.ReplaceAll(to, " ", "")
	return strings.TrimSpace(to)
}
