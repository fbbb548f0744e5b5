package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/nhle/webmail/internal/provider"
)

// smtpConfig holds SMTP submission settings. The tls flag selects
// implicit TLS on connect; otherwise the connection upgrades with
// STARTTLS before authenticating.
type smtpConfig struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// send submits a raw RFC 5322 message to all recipients.
func (c smtpConfig) send(
	ctx context.Context, from string, recipients []string, raw []byte,
) error {
	addr := c.host + ":" + c.port

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to SMTP %s: %w", addr, err)
	}

	tlsConfig := &tls.Config{ServerName: c.host}
	if c.tls {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if !c.tls {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	auth := smtp.PlainAuth("", c.username, c.password, c.host)
	if err := client.Auth(auth); err != nil {
		return &provider.AuthError{
			Driver: provider.DriverIMAP,
			Message: fmt.Sprintf(
				"SMTP authentication failed for %s: %v", c.username, err,
			),
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("adding recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("opening data stream: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data stream: %w", err)
	}

	return client.Quit()
}
