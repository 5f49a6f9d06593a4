package mailer

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendComposesAlternativeParts(t *testing.T) {
	c := New("smtp.test", 587, "shop@bakery.test", "pw")

	var gotAddr, gotFrom string
	var gotTo []string
	var raw []byte
	c.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, raw = addr, from, to, msg
		return nil
	}

	err := c.Send(context.Background(), Message{
		To:      "a@x.com",
		Subject: "Order Invoice #42",
		Text:    "Total: ₹24.50",
		HTML:    "<p>Total: ₹24.50</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, "shop@bakery.test", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "Order Invoice #42", mustDecode(t, msg.Header.Get("Subject")))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p)
		require.NoError(t, err)
		types = append(types, p.Header.Get("Content-Type"))
		assert.Contains(t, string(body), "₹24.50")
	}
	assert.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8"}, types)
}

func mustDecode(t *testing.T, s string) string {
	t.Helper()
	out, err := new(mime.WordDecoder).DecodeHeader(s)
	require.NoError(t, err)
	return out
}

func TestSendRequiresCredentials(t *testing.T) {
	c := New("smtp.test", 587, "", "")
	err := c.Send(context.Background(), Message{To: "a@x.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	c := New("smtp.test", 587, "u", "p")
	c.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Send(ctx, Message{To: "a@x.com"}), context.Canceled)
}
