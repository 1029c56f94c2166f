// Package parser decodes raw RFC 5322 email messages, including MIME
// multipart bodies, into the email model used by the resolver.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/shineum/email-json/internal/email"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.NewReaderLabel}

// Parse parses a raw RFC 5322 email message into an Email struct.
// It handles plain text messages, multipart messages with text/html bodies,
// and attachments. Unrecognized MIME parts are logged as warnings.
func Parse(raw []byte) (*email.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &email.Email{
		From:      decodeHeader(msg.Header.Get("From")),
		Subject:   decodeHeader(msg.Header.Get("Subject")),
		MessageID: msg.Header.Get("Message-Id"),
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	encoding := msg.Header.Get("Content-Transfer-Encoding")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If content type is unparseable, treat as plain text
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		body, readErr := readBody(msg.Body, encoding)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		result.TextBody = string(body)
		return result, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
	} else {
		body, err := readBody(msg.Body, encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to read message body: %w", err)
		}
		disposition := msg.Header.Get("Content-Disposition")
		if isAttachmentDisposition(disposition) || !strings.HasPrefix(mediaType, "text/") {
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename:    filenameFrom(disposition, params, mediaType),
				ContentType: mediaType,
				Content:     body,
			})
		} else {
			switch mediaType {
			case "text/html":
				result.HTMLBody = toUTF8(body, params["charset"])
			default:
				result.TextBody = toUTF8(body, params["charset"])
			}
		}
	}

	if result.TextBody == "" && result.HTMLBody != "" {
		text, err := TextFromHTML(result.HTMLBody)
		if err != nil {
			slog.Warn("failed to derive text body from html", "error", err)
		} else {
			result.TextBody = text
		}
	}

	return result, nil
}

// parseMultipart processes a multipart MIME message body, extracting text/plain,
// text/html parts and attachments in the order they appear.
func parseMultipart(body io.Reader, boundary string, result *email.Email) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		contentDisposition := part.Header.Get("Content-Disposition")

		if strings.HasPrefix(mediaType, "multipart/") {
			nestedBoundary := params["boundary"]
			if nestedBoundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := parseMultipart(part, nestedBoundary, result); err != nil {
				slog.Warn("failed to parse nested multipart",
					"error", err,
				)
			}
			continue
		}

		// multipart.Reader strips quoted-printable itself and drops the
		// header, so only base64 is left to undo here.
		content, err := readBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		if isAttachmentDisposition(contentDisposition) {
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename:    filenameFrom(contentDisposition, params, mediaType),
				ContentType: mediaType,
				Content:     content,
			})
			continue
		}

		switch mediaType {
		case "text/plain":
			if result.TextBody == "" {
				result.TextBody = toUTF8(content, params["charset"])
			}
		case "text/html":
			if result.HTMLBody == "" {
				result.HTMLBody = toUTF8(content, params["charset"])
			}
		case email.JSONMediaType:
			// Inline JSON parts are kept even without a filename.
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename:    filenameFrom(contentDisposition, params, mediaType),
				ContentType: mediaType,
				Content:     content,
			})
		default:
			filename := explicitFilename(contentDisposition, params)
			if filename != "" {
				result.Attachments = append(result.Attachments, email.Attachment{
					Filename:    filename,
					ContentType: mediaType,
					Content:     content,
				})
			} else {
				slog.Warn("unrecognized MIME part, skipping",
					"content_type", mediaType,
					"disposition", contentDisposition,
				)
			}
		}
	}

	return nil
}

// readBody reads r fully and undoes the given Content-Transfer-Encoding.
func readBody(r io.Reader, encoding string) ([]byte, error) {
	encoding = strings.ToLower(strings.TrimSpace(encoding))

	if encoding == "quoted-printable" {
		return io.ReadAll(quotedprintable.NewReader(r))
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if encoding != "base64" {
		// "7bit", "8bit", "binary" or empty
		return raw, nil
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, string(raw))
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		// Try with RawStdEncoding for unpadded base64
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
	}
	return decoded, nil
}

// toUTF8 converts text in the declared charset to UTF-8. Unknown charsets
// are passed through unchanged.
func toUTF8(content []byte, label string) string {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "us-ascii") {
		return string(content)
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(content))
	if err != nil {
		slog.Debug("unsupported charset, using raw bytes", "charset", label)
		return string(content)
	}
	converted, err := io.ReadAll(r)
	if err != nil {
		return string(content)
	}
	return string(converted)
}

func isAttachmentDisposition(disposition string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(disposition)), "attachment")
}

// explicitFilename returns the filename named by Content-Disposition or the
// Content-Type "name" parameter, RFC 2047 decoded. Empty if neither is set.
func explicitFilename(disposition string, params map[string]string) string {
	if disposition != "" {
		if _, dparams, err := mime.ParseMediaType(disposition); err == nil {
			if fn := dparams["filename"]; fn != "" {
				return decodeHeader(fn)
			}
		}
	}
	if name := params["name"]; name != "" {
		return decodeHeader(name)
	}
	return ""
}

// filenameFrom is explicitFilename with a fallback derived from the media
// type, so every attachment carries a name.
func filenameFrom(disposition string, params map[string]string, mediaType string) string {
	if fn := explicitFilename(disposition, params); fn != "" {
		return fn
	}
	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) == 2 && parts[1] != "" {
		return "attachment." + parts[1]
	}
	return "attachment"
}

// decodeHeader decodes RFC 2047 encoded-words, returning the input on error.
func decodeHeader(value string) string {
	if !strings.Contains(value, "=?") {
		return value
	}
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
