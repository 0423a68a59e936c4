// Package notify delivers WhatsApp messages to the professional.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message is one outbound text.
type Message struct {
	To   string
	Text string
}

// Result reports a delivery attempt. Failures are data, not errors.
type Result struct {
	OK       bool   `json:"ok"`
	ID       string `json:"sid,omitempty"`
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
}

// Notifier sends a message and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, msg Message) Result
}

// Config selects and configures the provider.
type Config struct {
	Provider  string
	Recipient string
	Timeout   time.Duration

	UltraMsg UltraMsgConfig
	Twilio   TwilioConfig
}

// New builds the notifier named by cfg.Provider. Unknown names fall back to logging.
func New(cfg Config, logger *zap.Logger) Notifier {
	switch cfg.Provider {
	case "ultramsg":
		return NewUltraMsg(cfg.UltraMsg, nil)
	case "twilio":
		return NewTwilio(cfg.Twilio, nil)
	default:
		return NewLogNotifier(logger)
	}
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) Result {
	n.logger.Info("whatsapp message", zap.String("to", msg.To), zap.String("text", msg.Text))
	return Result{OK: true, Provider: "log"}
}

// Dispatcher sends messages to a fixed recipient, each under its own timeout, and only
// logs the outcome.
type Dispatcher struct {
	notifier  Notifier
	recipient string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(notifier Notifier, recipient string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifier: notifier, recipient: recipient, timeout: timeout, logger: logger}
}

// Send delivers text and returns the result.
func (d *Dispatcher) Send(ctx context.Context, text string) Result {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res := d.notifier.Notify(ctx, Message{To: d.recipient, Text: text})
	if !res.OK {
		d.logger.Warn("notification failed",
			zap.String("provider", res.Provider),
			zap.String("error", res.Error),
		)
	} else {
		d.logger.Debug("notification sent",
			zap.String("provider", res.Provider),
			zap.String("id", res.ID),
		)
	}
	return res
}
