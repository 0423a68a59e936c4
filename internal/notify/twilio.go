package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultTwilioURL  = "https://api.twilio.com"
	defaultTwilioFrom = "whatsapp:+14155238886"
)

// TwilioConfig holds the Twilio account and WhatsApp sender.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

// Twilio sends WhatsApp messages through the Twilio Messages API.
type Twilio struct {
	cfg TwilioConfig
	hc  *http.Client
}

// NewTwilio creates a new Twilio notifier. A nil hc uses http.DefaultClient.
func NewTwilio(cfg TwilioConfig, hc *http.Client) *Twilio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioURL
	}
	if cfg.From == "" {
		cfg.From = defaultTwilioFrom
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Twilio{cfg: cfg, hc: hc}
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *Twilio) Notify(ctx context.Context, msg Message) Result {
	res := Result{Provider: "twilio"}
	from := whatsappAddress(t.cfg.From)
	to := whatsappAddress(msg.To)
	if t.cfg.AccountSID == "" || t.cfg.AuthToken == "" || from == "" || to == "" {
		res.Error = "twilio_env_vars_missing"
		return res
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", msg.Text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(t.cfg.BaseURL, "/"), url.PathEscape(t.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.hc.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	var body twilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		res.Error = fmt.Sprintf("twilio status %d: %v", resp.StatusCode, err)
		return res
	}
	if resp.StatusCode >= 300 {
		res.Error = fmt.Sprintf("twilio status %d code=%d: %s", resp.StatusCode, body.Code, body.Message)
		return res
	}
	res.OK = true
	res.ID = body.SID
	return res
}

// whatsappAddress removes spaces and adds the whatsapp: scheme when missing.
func whatsappAddress(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" || strings.HasPrefix(s, "whatsapp:") {
		return s
	}
	return "whatsapp:" + s
}
