package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

const MaxImageSize = 5 << 20

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
)

// ImageStore 保存用户上传的图片并返回可公开访问的 URL
type ImageStore interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// ValidateImage 只接受不超过 MaxImageSize 的 image/*
func ValidateImage(size int64, contentType string) error {
	if !strings.HasPrefix(contentType, "image/") {
		return ErrUnsupportedImage
	}
	if size <= 0 || size > MaxImageSize {
		return ErrImageTooLarge
	}
	return nil
}
