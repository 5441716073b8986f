package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
	"github.com/vadim/neo-dm/internal/httpx/response"
)

// DefaultMaxUploadSize is the upload limit when none is configured (50MB)
const DefaultMaxUploadSize = 50 << 20

// AttachmentUploader stores an uploaded attachment
type AttachmentUploader interface {
	Upload(ctx context.Context, in AttachmentUploadInput) (*AttachmentUploadOutput, error)
}

// AttachmentUploadInput represents input for attachment upload
type AttachmentUploadInput struct {
	Reader      io.Reader
	ContentType string
	Size        int64
	Filename    string
}

// AttachmentUploadOutput represents output from attachment upload
type AttachmentUploadOutput struct {
	URL  string
	Key  string
	Size int64
}

// UploadHandler handles attachment upload HTTP requests
type UploadHandler struct {
	uploader AttachmentUploader
	maxSize  int64
	logger   *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploader AttachmentUploader, maxSize int64, logger *slog.Logger) *UploadHandler {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &UploadHandler{uploader: uploader, maxSize: maxSize, logger: logger}
}

// RegisterRoutes registers upload routes
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/messages/upload-file", h.Upload())
}

// UploadResponse describes a stored attachment. URL is what clients pass as
// attachment_url when sending.
type UploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// Upload handles POST /messages/upload-file
func (h *UploadHandler) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)

		if err := r.ParseMultipartForm(h.maxSize); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.RequestEntityTooLarge(w, entity.ErrAttachmentTooLarge.Error())
				return
			}
			response.BadRequest(w, "invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, "missing file in request")
			return
		}
		defer file.Close()

		contentType := normalizeContentType(header.Header.Get("Content-Type"))
		if !isAllowedAttachmentType(contentType) {
			response.BadRequest(w, fmt.Sprintf("unsupported attachment type: %s", contentType))
			return
		}

		result, err := h.uploader.Upload(r.Context(), AttachmentUploadInput{
			Reader:      file,
			ContentType: contentType,
			Size:        header.Size,
			Filename:    header.Filename,
		})
		if err != nil {
			h.logger.Error("attachment upload failed", "filename", header.Filename, "error", err)
			response.InternalError(w, "failed to upload file")
			return
		}

		response.Created(w, UploadResponse{
			URL:      result.URL,
			FileName: header.Filename,
			FileType: contentType,
			FileSize: result.Size,
		})
	}
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// isAllowedAttachmentType checks if the content type is allowed for upload
func isAllowedAttachmentType(contentType string) bool {
	allowed := []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/heic",
		"video/mp4",
		"video/quicktime",
		"video/webm",
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
	}

	for _, a := range allowed {
		if strings.EqualFold(contentType, a) {
			return true
		}
	}
	return false
}
