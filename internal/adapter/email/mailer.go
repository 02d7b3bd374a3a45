// Package email sends user notifications over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/garala-cf/garala/internal/usecase"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrQueueFull is returned when notifications arrive faster than SMTP drains them.
var ErrQueueFull = errors.New("email queue is full")

const (
	queueSize   = 100
	idleTimeout = 30 * time.Second
)

var newConversationBody = template.Must(template.New("new_conversation").Parse(
	`<p>Bonjour {{.ToName}},</p>
<p>{{.FromName}} vous a écrit au sujet de votre annonce « {{.ListingTitle}} ».</p>
<p><a href="{{.Link}}">Répondre sur Garala</a></p>`))

type smtpDialer interface {
	Dial() (gomail.SendCloser, error)
}

// Mailer queues messages and sends them from a single worker that keeps the
// SMTP connection open while there is traffic.
type Mailer struct {
	dialer      smtpDialer
	sender      string
	publicURL   string
	queue       chan *gomail.Message
	idleTimeout time.Duration
	logger      *logger.Logger
}

func NewMailer(host string, port int, username, password, sender, publicURL string, log *logger.Logger) *Mailer {
	return &Mailer{
		dialer:      gomail.NewDialer(host, port, username, password),
		sender:      sender,
		publicURL:   strings.TrimRight(publicURL, "/"),
		queue:       make(chan *gomail.Message, queueSize),
		idleTimeout: idleTimeout,
		logger:      log.Named("Mailer"),
	}
}

func (m *Mailer) renderNewConversation(n usecase.ConversationNotice) (string, error) {
	var body strings.Builder
	err := newConversationBody.Execute(&body, struct {
		usecase.ConversationNotice
		Link string
	}{n, fmt.Sprintf("%s/conversations/%s", m.publicURL, n.ConversationID)})
	if err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return body.String(), nil
}

func (m *Mailer) buildNewConversation(n usecase.ConversationNotice) (*gomail.Message, error) {
	body, err := m.renderNewConversation(n)
	if err != nil {
		return nil, err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetAddressHeader("To", n.ToEmail, n.ToName)
	msg.SetHeader("Subject", fmt.Sprintf("Nouveau message pour « %s »", n.ListingTitle))
	msg.SetBody("text/html", body)
	return msg, nil
}

// NotifyNewConversation queues the email and returns without waiting for SMTP.
func (m *Mailer) NotifyNewConversation(ctx context.Context, n usecase.ConversationNotice) error {
	msg, err := m.buildNewConversation(n)
	if err != nil {
		return err
	}
	select {
	case m.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Run sends queued messages until ctx is cancelled.
func (m *Mailer) Run(ctx context.Context) {
	var (
		conn gomail.SendCloser
		err  error
	)
	closeConn := func() {
		if conn == nil {
			return
		}
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close SMTP connection", zap.Error(err))
		}
		conn = nil
	}
	defer closeConn()

	idle := time.NewTimer(m.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			if conn == nil {
				if conn, err = m.dialer.Dial(); err != nil {
					m.logger.Error("Failed to dial SMTP server", zap.Error(err))
					conn = nil
					continue
				}
			}
			if err := gomail.Send(conn, msg); err != nil {
				m.logger.Error("Failed to send email", zap.Strings("to", msg.GetHeader("To")), zap.Error(err))
				closeConn()
			}
			idle.Reset(m.idleTimeout)
		case <-idle.C:
			closeConn()
		}
	}
}
