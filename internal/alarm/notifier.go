package alarm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/eugenenazirov/health-alarm/internal/config"
	"github.com/eugenenazirov/health-alarm/internal/health"
)

const (
	// SubmissionPort is the SMTP submission port used with STARTTLS.
	SubmissionPort = 587

	// Subject is the fixed subject line of every alert mail.
	Subject = "Resource Monitoring Alert"
)

// ErrInvalidTransport indicates mail settings from which no transport can be built.
var ErrInvalidTransport = errors.New("invalid smtp transport settings")

var validate = validator.New()

// Sender delivers prepared messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSend(messages ...*mail.Msg) error
}

// Batch is the mail body: the findings of one notification plus the time it was built.
type Batch struct {
	UpdateTime string           `json:"update_time"`
	Events     []health.Finding `json:"events"`
}

// Notifier owns a single SMTP transport and mails finding batches through it.
//
// Notifier adds no locking around the transport; concurrent Notify calls rely
// on the Sender being safe for concurrent use.
type Notifier struct {
	from   string
	to     string
	sender Sender
	logger *zap.Logger
	clock  func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSender replaces the SMTP client, primarily for tests.
func WithSender(sender Sender) Option {
	return func(n *Notifier) {
		n.sender = sender
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(n *Notifier) {
		n.clock = clock
	}
}

// New builds a Notifier authenticated against cfg.Domain on the submission
// port with mandatory STARTTLS. Errors are configuration errors and are
// expected to abort startup.
func New(cfg config.MailConfig, logger *zap.Logger, opts ...Option) (*Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validate.Var(cfg.Domain, "required,hostname_rfc1123"); err != nil {
		return nil, fmt.Errorf("%w: domain %q is not a hostname", ErrInvalidTransport, cfg.Domain)
	}

	addr := mail.NewMsg()
	if err := addr.From(cfg.From); err != nil {
		return nil, fmt.Errorf("%w: from address: %v", ErrInvalidTransport, err)
	}
	if err := addr.To(cfg.To); err != nil {
		return nil, fmt.Errorf("%w: to address: %v", ErrInvalidTransport, err)
	}

	n := &Notifier{
		from:   cfg.From,
		to:     cfg.To,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.sender == nil {
		client, err := mail.NewClient(cfg.Domain,
			mail.WithPort(SubmissionPort),
			mail.WithTLSPolicy(mail.TLSMandatory),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransport, err)
		}
		n.sender = client
	}

	return n, nil
}

// Notify mails events as a pretty-printed Batch. It never fails the caller:
// delivery errors are logged at error level and the undelivered body is
// logged at info level.
func (n *Notifier) Notify(events []health.Finding) {
	body, err := n.render(events)
	if err != nil {
		n.logger.Error("could not render alert mail", zap.Error(err), zap.Int("events", len(events)))
		return
	}

	msg, err := n.message(body)
	if err != nil {
		n.logger.Error("could not build alert mail", zap.Error(err))
		n.logger.Info("unsent mail", zap.String("body", body))
		return
	}

	if err := n.sender.DialAndSend(msg); err != nil {
		n.logger.Error("could not send email", zap.Error(err))
		n.logger.Info("unsent mail", zap.String("body", body))
		return
	}
	n.logger.Info("email sent successfully", zap.Int("events", len(events)))
}

// render encodes events with the current UTC time. A nil slice encodes as [].
func (n *Notifier) render(events []health.Finding) (string, error) {
	if events == nil {
		events = []health.Finding{}
	}
	batch := Batch{
		UpdateTime: n.clock().UTC().Format(time.RFC3339),
		Events:     events,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (n *Notifier) message(body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(n.to); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(Subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
