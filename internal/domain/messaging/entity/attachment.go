package entity

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// AttachmentKind is the coarse classification of an attachment's MIME type
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentFile  AttachmentKind = "file"
)

// Placeholder labels stored as content of attachment-only messages
const (
	PlaceholderImage = "📷 Image"
	PlaceholderVideo = "🎥 Video"
	PlaceholderFile  = "📎 File"
)

// ClassifyMIME maps a MIME type to an attachment kind
func ClassifyMIME(mimeType string) AttachmentKind {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mediaType, "video/"):
		return AttachmentVideo
	default:
		return AttachmentFile
	}
}

// Placeholder returns the label for an attachment kind
func (k AttachmentKind) Placeholder() string {
	switch k {
	case AttachmentImage:
		return PlaceholderImage
	case AttachmentVideo:
		return PlaceholderVideo
	default:
		return PlaceholderFile
	}
}

// MIMEFromURL guesses a MIME type from the extension of an attachment URL.
// Returns an empty string when the extension is unknown.
func MIMEFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

// ValidateAttachmentURL checks that an attachment reference is an absolute http(s) URL
func ValidateAttachmentURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidAttachment
	}
	return nil
}
