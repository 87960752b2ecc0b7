// smtp.go implements the primary delivery channel: direct SMTP with STARTTLS
// or implicit TLS. The message carries both plain and HTML bodies, so the wire
// form is multipart/alternative with the plain part first.
package notify

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"

	"context"
)

// SMTPOptions configures the SMTP channel.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// UseTLS selects an encrypted connection: implicit TLS when the server
	// speaks SMTPS directly (port 465 pattern), with a STARTTLS fallback for
	// the port 587 pattern.
	UseTLS bool
}

// SMTPChannel sends mail by speaking SMTP to a configured relay host.
type SMTPChannel struct {
	opts SMTPOptions
}

// NewSMTPChannel creates the channel. Configuration completeness is the
// caller's concern; a channel with an empty host fails every send.
func NewSMTPChannel(opts SMTPOptions) *SMTPChannel {
	return &SMTPChannel{opts: opts}
}

// Name implements Channel.
func (c *SMTPChannel) Name() string { return "smtp" }

// Send implements Channel.
func (c *SMTPChannel) Send(_ context.Context, msg Message) error {
	if c.opts.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	wire, err := encodeMessage(c.opts.From, msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)
	auth := smtp.PlainAuth("", c.opts.Username, c.opts.Password, c.opts.Host)

	if c.opts.UseTLS {
		return sendMailTLS(addr, c.opts.Host, auth, c.opts.From, []string{msg.To}, wire)
	}
	return smtp.SendMail(addr, auth, c.opts.From, []string{msg.To}, wire)
}

// encodeMessage assembles an RFC 5322 message whose body is a
// multipart/alternative pair: text/plain first, text/html second, so clients
// prefer the rich part while plain-text readers still get a usable body.
func encodeMessage(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	plain, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := plain.Write([]byte(msg.TextBody)); err != nil {
		return nil, err
	}

	html, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := html.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sendMailTLS connects via implicit TLS (SMTPS) and sends a message. When the
// TLS dial fails, it falls back to smtp.SendMail, which performs the STARTTLS
// upgrade itself, so UseTLS=true always means an encrypted connection
// regardless of which port convention the relay follows.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
