package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"carrierhub/pkg/errors"
	"carrierhub/pkg/model"
)

func (c *APIClient) Settings(ctx context.Context) *model.Envelope[model.Settings] {
	return call[model.Settings](ctx, c, http.MethodGet, "/admin/settings", nil)
}

func (c *APIClient) UpdateSettings(ctx context.Context, s model.Settings) *model.Envelope[model.Settings] {
	if appErr := c.validator.Struct(s); appErr != nil {
		return invalid[model.Settings](appErr)
	}
	return call[model.Settings](ctx, c, http.MethodPatch, "/admin/settings", s)
}

func (c *APIClient) DownloadBackup(ctx context.Context) *model.Envelope[Blob] {
	return blob(ctx, c, http.MethodGet, "/admin/settings/backup", nil)
}

// RestoreBackup uploads a backup archive as multipart form field "backup".
func (c *APIClient) RestoreBackup(ctx context.Context, filename string, data []byte) *model.Envelope[Empty] {
	if len(data) == 0 {
		return invalid[Empty](errors.Validation("Backup file is empty", []errors.FieldDetail{{Field: "backup", Message: "backup is required"}}))
	}

	body, contentType, err := multipartFile("backup", filename, data)
	if err != nil {
		return invalid[Empty](errors.Internal("Failed to prepare backup upload", err))
	}
	return call[Empty](ctx, c, http.MethodPost, "/admin/settings/restore", nil, WithRawBody(contentType, body))
}

func multipartFile(field, filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
