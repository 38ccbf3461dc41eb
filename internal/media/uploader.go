package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/oklog/ulid/v2"
)

// Upload errors.
var (
	ErrEmptyUpload  = errors.New("image payload is empty")
	ErrUploadFailed = errors.New("image upload failed")
	ErrDisabled     = errors.New("media host is not configured")
)

// UploadResult describes a stored image.
type UploadResult struct {
	URL         string
	Key         string
	ContentType string
	Size        int64
}

// objectPutter is the slice of the minio client the uploader needs.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// Uploader stores images on the media host and returns their public URL.
type Uploader struct {
	client    objectPutter
	bucket    string
	folder    string
	publicURL string
}

// NewUploader creates an Uploader over a minio client.
func NewUploader(client *minio.Client, cfg Config) *Uploader {
	publicURL := cfg.PublicURL
	if publicURL == "" && client != nil {
		publicURL = client.EndpointURL().String()
	}
	return newUploader(client, cfg.Bucket, cfg.Folder, publicURL)
}

func newUploader(client objectPutter, bucket, folder, publicURL string) *Uploader {
	return &Uploader{
		client:    client,
		bucket:    bucket,
		folder:    strings.Trim(folder, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Upload stores data under the configured folder. The content type is
// sniffed from the payload. The returned URL is durable and public.
func (u *Uploader) Upload(ctx context.Context, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	contentType := http.DetectContentType(data)
	key := u.objectKey(contentType)

	info, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return &UploadResult{
		URL:         u.publicURL + "/" + u.bucket + "/" + key,
		Key:         key,
		ContentType: contentType,
		Size:        info.Size,
	}, nil
}

// Ping checks that the bucket is reachable.
func (u *Uploader) Ping(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", u.bucket)
	}
	return nil
}

func (u *Uploader) objectKey(contentType string) string {
	name := strings.ToLower(ulid.Make().String()) + extensionFor(contentType)
	if u.folder == "" {
		return name
	}
	return path.Join(u.folder, name)
}

// extensionFor returns a file extension for a sniffed content type.
func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// Disabled is an uploader used when no media host is configured.
// Every upload fails so a request with an image never persists without it.
type Disabled struct{}

// Upload always returns ErrDisabled.
func (Disabled) Upload(context.Context, []byte) (*UploadResult, error) {
	return nil, ErrDisabled
}
