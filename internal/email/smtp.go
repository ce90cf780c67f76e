package email

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/dunning-api/internal/config"
	"github.com/jwalitptl/dunning-api/pkg/circuitbreaker"
	"github.com/jwalitptl/dunning-api/pkg/errors"
)

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	cb     *circuitbreaker.CircuitBreaker
}

// NewSMTPSender builds a Sender over a gomail SMTP dialer. The message id is
// assigned locally and stamped as the Message-ID header so delivery callbacks
// can be correlated.
func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			Cooldown:    time.Minute,
		}),
	}
}

func (s *smtpSender) Send(ctx context.Context, msg *Message) (string, error) {
	messageID := uuid.New().String()

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@dunning>", messageID))
	m.SetBody("text/html", msg.Body)

	// gomail has no context support; run the dial-and-send in a goroutine and
	// race it against ctx so a timed-out send surfaces as a transport failure.
	done := make(chan error, 1)
	go func() {
		done <- s.cb.Execute(func() error {
			return s.dialer.DialAndSend(m)
		})
	}()

	select {
	case <-ctx.Done():
		return "", errors.NewTransport(msg.To, ctx.Err())
	case err := <-done:
		if err != nil {
			return "", errors.NewTransport(msg.To, err)
		}
	}

	return messageID, nil
}
