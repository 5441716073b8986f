package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	got AttachmentUploadInput
	err error
}

func (u *fakeUploader) Upload(_ context.Context, in AttachmentUploadInput) (*AttachmentUploadOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	data, _ := io.ReadAll(in.Reader)
	u.got = in
	return &AttachmentUploadOutput{URL: "https://cdn.example.com/a/" + in.Filename, Key: "a/" + in.Filename, Size: int64(len(data))}, nil
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func uploadRouter(u AttachmentUploader, maxSize int64) *chi.Mux {
	r := chi.NewRouter()
	NewUploadHandler(u, maxSize, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)
	return r
}

func TestUploadHandler_Upload(t *testing.T) {
	u := &fakeUploader{}
	body, ct := multipartBody(t, "scan.pdf", "application/pdf", []byte("%PDF-1.7"))

	req := httptest.NewRequest(http.MethodPost, "/messages/upload-file", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	uploadRouter(u, 0).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, "https://cdn.example.com/a/scan.pdf", resp.URL)
	assert.Equal(t, "scan.pdf", resp.FileName)
	assert.Equal(t, "application/pdf", resp.FileType)
	assert.EqualValues(t, 8, resp.FileSize)
	assert.Equal(t, "application/pdf", u.got.ContentType)
}

func TestUploadHandler_Rejects(t *testing.T) {
	body, ct := multipartBody(t, "run.sh", "application/x-sh", []byte("#!/bin/sh"))
	req := httptest.NewRequest(http.MethodPost, "/messages/upload-file", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	uploadRouter(&fakeUploader{}, 0).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, "big.png", "image/png", bytes.Repeat([]byte{1}, 4096))
	req = httptest.NewRequest(http.MethodPost, "/messages/upload-file", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	uploadRouter(&fakeUploader{}, 1024).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "attachment exceeds maximum size")

	req = httptest.NewRequest(http.MethodPost, "/messages/upload-file", nil)
	rec = httptest.NewRecorder()
	uploadRouter(&fakeUploader{}, 0).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandler_StorageFailure(t *testing.T) {
	body, ct := multipartBody(t, "a.png", "image/png", []byte{1, 2, 3})
	req := httptest.NewRequest(http.MethodPost, "/messages/upload-file", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	uploadRouter(&fakeUploader{err: errors.New("s3 down")}, 0).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3 down")
}
