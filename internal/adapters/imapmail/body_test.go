package imapmail

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseMessage(t *testing.T, raw string) *mail.Message {
	t.Helper()
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func TestExtractBodyPlainText(t *testing.T) {
	msg := parseMessage(t, "From: a@b.com\r\n"+
		"Subject: hi\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n"+
		"Thank you for applying.\r\n")

	body, err := extractBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Thank you for applying.")
}

func TestExtractBodyMissingContentType(t *testing.T) {
	msg := parseMessage(t, "From: a@b.com\r\n"+
		"\r\n"+
		"plain words\r\n")

	body, err := extractBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "plain words")
}

func TestExtractBodyHTMLFallback(t *testing.T) {
	msg := parseMessage(t, "From: a@b.com\r\n"+
		"Content-Type: text/html; charset=utf-8\r\n"+
		"\r\n"+
		"<html><body><p>Interview invitation</p><script>x()</script></body></html>\r\n")

	body, err := extractBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Interview invitation")
	assert.NotContains(t, body, "x()")
}

func TestExtractBodyMultipartPrefersPlain(t *testing.T) {
	raw := "From: a@b.com\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--BOUND--\r\n"

	body, err := extractBody(parseMessage(t, raw))
	require.NoError(t, err)
	assert.Contains(t, body, "plain version")
	assert.NotContains(t, body, "html version")
}

func TestExtractBodyQuotedPrintable(t *testing.T) {
	msg := parseMessage(t, "From: a@b.com\r\n"+
		"Content-Type: text/plain\r\n"+
		"Content-Transfer-Encoding: quoted-printable\r\n"+
		"\r\n"+
		"caf=C3=A9 position\r\n")

	body, err := extractBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "café position")
}

func TestExtractBodyBase64(t *testing.T) {
	msg := parseMessage(t, "From: a@b.com\r\n"+
		"Content-Type: text/plain\r\n"+
		"Content-Transfer-Encoding: base64\r\n"+
		"\r\n"+
		"b2ZmZXIgbGV0dGVy\r\n")

	body, err := extractBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "offer letter")
}
