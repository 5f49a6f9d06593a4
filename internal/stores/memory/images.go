package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
)

const maxInlineImage = 2 << 20

// Images inlines uploads as data URLs; used when no bucket is configured.
type Images struct{}

func (Images) Upload(_ context.Context, _ string, contentType string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxInlineImage+1))
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxInlineImage {
		return "", fmt.Errorf("image larger than %d bytes cannot be inlined", maxInlineImage)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
