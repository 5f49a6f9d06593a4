package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Client delivers mail through an authenticated SMTP relay.
type Client struct {
	host     string
	port     int
	user     string
	password string
	fromName string
	send     sendFunc
	now      func() time.Time
}

func New(host string, port int, user, password string) *Client {
	return &Client{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		fromName: "Bakery Orders",
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

var ErrNotConfigured = errors.New("smtp credentials are not configured")

func (c *Client) Send(ctx context.Context, m Message) error {
	if c.user == "" || c.password == "" {
		return ErrNotConfigured
	}
	if m.To == "" {
		return errors.New("message has no recipient")
	}
	// net/smtp has no context support; at least honour an already cancelled request
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := c.compose(m)
	if err != nil {
		return fmt.Errorf("composing message: %w", err)
	}

	addr := c.host + ":" + strconv.Itoa(c.port)
	auth := smtp.PlainAuth("", c.user, c.password, c.host)
	if err := c.send(addr, auth, c.user, []string{m.To}, body); err != nil {
		return fmt.Errorf("sending mail to %s: %w", m.To, err)
	}
	return nil
}

// compose renders a multipart/alternative message with a plaintext and an
// HTML part.
func (c *Client) compose(m Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	from := mime.QEncoding.Encode("utf-8", c.fromName) + " <" + c.user + ">"
	headers := []struct{ k, v string }{
		{"From", from},
		{"To", m.To},
		{"Reply-To", c.user},
		{"Subject", mime.QEncoding.Encode("utf-8", m.Subject)},
		{"Date", c.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"X-Mailer", "BakeryApp Mailer"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.k, h.v)
	}
	buf.WriteString("\r\n")

	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", m.Text},
		{"text/html; charset=utf-8", m.HTML},
	} {
		if part.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
