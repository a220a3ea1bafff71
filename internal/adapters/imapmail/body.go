package imapmail

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/applizz/jobmail/internal/utils"
)

// extractBody pulls plain text out of a parsed message: text/plain parts are
// preferred, text/html is converted as a fallback, nested multiparts are
// walked recursively. The first non-empty body wins.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	encoding := msg.Header.Get("Content-Transfer-Encoding")
	return extractPart(msg.Body, contentType, encoding)
}

func extractPart(r io.Reader, contentType, encoding string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable or missing Content-Type: treat the body as text.
		raw, err := io.ReadAll(decodeTransfer(r, encoding))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary, ok := params["boundary"]
		if !ok {
			raw, err := io.ReadAll(r)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
		return extractMultipart(r, boundary)

	case mediaType == "text/html":
		raw, err := io.ReadAll(decodeTransfer(r, encoding))
		if err != nil {
			return "", err
		}
		return utils.HTMLToText(string(raw)), nil

	default:
		raw, err := io.ReadAll(decodeTransfer(r, encoding))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

// extractMultipart walks the parts of one multipart body. Plain text beats
// HTML; the HTML conversion only applies when no plain part had content.
func extractMultipart(r io.Reader, boundary string) (string, error) {
	mr := multipart.NewReader(r, boundary)

	var htmlFallback string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part ends the walk; keep whatever was found.
			break
		}

		partType := part.Header.Get("Content-Type")
		partEncoding := part.Header.Get("Content-Transfer-Encoding")
		mediaType, _, _ := mime.ParseMediaType(partType)

		switch {
		case mediaType == "text/plain":
			raw, err := io.ReadAll(decodeTransfer(part, partEncoding))
			if err != nil {
				continue
			}
			if text := strings.TrimSpace(string(raw)); text != "" {
				return text, nil
			}
		case mediaType == "text/html" && htmlFallback == "":
			raw, err := io.ReadAll(decodeTransfer(part, partEncoding))
			if err != nil {
				continue
			}
			htmlFallback = utils.HTMLToText(string(raw))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, err := extractPart(part, partType, partEncoding)
			if err == nil && strings.TrimSpace(nested) != "" {
				return strings.TrimSpace(nested), nil
			}
		}
	}

	return htmlFallback, nil
}

// decodeTransfer undoes quoted-printable and base64 transfer encodings.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}
