// Package email defines the decoded email model consumed by the resolver.
package email

import (
	"mime"
	"path"
	"strings"
)

// JSONMediaType is the media type that marks an attachment as JSON.
const JSONMediaType = "application/json"

// Email is a decoded email message. It is produced by the parser and is
// treated as read-only by everything downstream.
type Email struct {
	From      string
	Subject   string
	MessageID string

	// TextBody is the plain-text body. When the message has no text/plain
	// part it is derived from HTMLBody.
	TextBody string
	HTMLBody string

	// Attachments keeps the order in which parts appeared in the message.
	Attachments []Attachment
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// MediaType returns the lower-cased content type without parameters.
func (a Attachment) MediaType() string {
	mediaType, _, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		if i := strings.IndexByte(a.ContentType, ';'); i >= 0 {
			return strings.ToLower(strings.TrimSpace(a.ContentType[:i]))
		}
		return strings.ToLower(strings.TrimSpace(a.ContentType))
	}
	return mediaType
}

// IsJSON reports whether the attachment is declared as JSON, either by its
// media type or by a .json filename extension (case-insensitive).
func (a Attachment) IsJSON() bool {
	if a.MediaType() == JSONMediaType {
		return true
	}
	return strings.EqualFold(path.Ext(a.Filename), ".json")
}
