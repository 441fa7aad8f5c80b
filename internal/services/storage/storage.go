// Package storage saves uploaded job photos and returns their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const MaxPhotoSize = 5 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image format, use jpg, jpeg, png or gif")
	ErrInvalidSize     = errors.New("invalid file size")
)

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// PhotoStorage persists an uploaded photo and returns the URL it is served at.
// Delete removes a photo previously returned by Save.
type PhotoStorage interface {
	Save(ctx context.Context, fh *multipart.FileHeader, prefix string) (string, error)
	Delete(ctx context.Context, url string) error
}

// checkPhoto validates the upload and returns its lower-cased extension.
func checkPhoto(fh *multipart.FileHeader) (string, error) {
	if fh.Size <= 0 || fh.Size > MaxPhotoSize {
		return "", ErrInvalidSize
	}
	return checkName(fh.Filename)
}

func objectName(prefix, ext string) string {
	return fmt.Sprintf("%s_%d%s", prefix, time.Now().UnixNano(), ext)
}

// nameFromURL recovers the object name Save put at the end of url.
func nameFromURL(url string) (string, error) {
	name := path.Base(url)
	if _, err := checkName(name); err != nil {
		return "", fmt.Errorf("not a stored photo url: %q", url)
	}
	return name, nil
}

func checkName(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := contentTypes[ext]; !ok {
		return "", ErrUnsupportedType
	}
	return ext, nil
}
