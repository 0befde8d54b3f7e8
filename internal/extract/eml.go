package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// maxMIMEDepth bounds nested multipart parts.
const maxMIMEDepth = 8

var wordDecoder = new(mime.WordDecoder)

// extractEML returns the decoded subject line followed by the message body.
// text/plain parts are preferred; HTML is used only when no plain part exists.
func extractEML(content []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse email: %w", err)
	}
	subject := msg.Header.Get("Subject")
	if decoded, err := wordDecoder.DecodeHeader(subject); err == nil {
		subject = decoded
	}
	plain, htmlBody, err := readPart(msg.Body, msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"), 0)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(plain)
	if body == "" {
		body = stripHTML(htmlBody)
	}
	switch {
	case subject == "":
		return body, nil
	case body == "":
		return subject, nil
	default:
		return subject + "\n\n" + body, nil
	}
}

func readPart(r io.Reader, contentType, encoding string, depth int) (plain, htmlBody string, err error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxMIMEDepth || params["boundary"] == "" {
			return "", "", nil
		}
		mr := multipart.NewReader(r, params["boundary"])
		var plainParts, htmlParts []string
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", "", fmt.Errorf("read MIME part: %w", err)
			}
			if isAttachment(p.Header.Get("Content-Disposition")) {
				continue
			}
			pl, h, err := readPart(p, p.Header.Get("Content-Type"), p.Header.Get("Content-Transfer-Encoding"), depth+1)
			if err != nil {
				return "", "", err
			}
			if pl != "" {
				plainParts = append(plainParts, pl)
			}
			if h != "" {
				htmlParts = append(htmlParts, h)
			}
			// multipart/alternative carries one body in several forms.
			if mediaType == "multipart/alternative" && pl != "" {
				break
			}
		}
		return strings.Join(plainParts, "\n\n"), strings.Join(htmlParts, "\n"), nil
	}

	data, err := io.ReadAll(decodeTransfer(r, encoding))
	if err != nil {
		return "", "", fmt.Errorf("decode %s body: %w", encoding, err)
	}
	text, _ := extractPlain(data)
	switch mediaType {
	case "text/plain":
		return text, "", nil
	case "text/html":
		return "", text, nil
	default:
		return "", "", nil
	}
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	default:
		return r
	}
}

func isAttachment(disposition string) bool {
	d, _, err := mime.ParseMediaType(disposition)
	return err == nil && d == "attachment"
}

// newlineStripper drops CR and LF so line-wrapped base64 decodes.
type newlineStripper struct{ r io.Reader }

func (n newlineStripper) Read(p []byte) (int, error) {
	for {
		c, err := n.r.Read(p)
		j := 0
		for _, b := range p[:c] {
			if b != '\r' && b != '\n' {
				p[j] = b
				j++
			}
		}
		if j > 0 || err != nil {
			return j, err
		}
	}
}
