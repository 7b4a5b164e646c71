package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

const (
	avatarFolder  = "public/avatars"
	MaxAvatarSize = 5 << 20
)

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// IsAvatarType reports whether contentType is an accepted avatar image.
func IsAvatarType(contentType string) bool {
	_, ok := avatarExtensions[contentType]
	return ok
}

type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	c := &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}

	if err := c.setBucketCORS(ctx); err != nil {
		logger.Warn("Failed to set bucket CORS configuration: %v", err)
	}

	return c, nil
}

func (c *CloudStorageClient) setBucketCORS(ctx context.Context) error {
	bucket := c.client.Bucket(c.bucketName)

	corsConfig := storage.CORS{
		MaxAge:          3600,
		Methods:         []string{"GET", "OPTIONS"},
		Origins:         []string{"*"},
		ResponseHeaders: []string{"Content-Type"},
	}

	attrs, err := bucket.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}

	if len(attrs.CORS) == 0 {
		if _, err := bucket.Update(ctx, storage.BucketAttrsToUpdate{CORS: []storage.CORS{corsConfig}}); err != nil {
			return fmt.Errorf("failed to update bucket CORS: %v", err)
		}
	}

	return nil
}

// UploadAvatar writes a public avatar object for userID and returns its URL.
func (c *CloudStorageClient) UploadAvatar(ctx context.Context, userID, contentType string, file io.Reader) (string, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return "", errors.BadRequest(fmt.Sprintf("Unsupported avatar type %q", contentType), nil)
	}

	name := fmt.Sprintf("%s/%s/%s-%s%s", avatarFolder, userID, uuid.New().String(), time.Now().Format("20060102150405"), ext)

	// cancelling the writer's context aborts the upload
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obj := c.client.Bucket(c.bucketName).Object(name)
	wc := obj.NewWriter(wctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	n, err := io.Copy(wc, io.LimitReader(file, MaxAvatarSize+1))
	if err != nil {
		cancel()
		return "", fmt.Errorf("failed to copy avatar to GCS: %v", err)
	}
	if n > MaxAvatarSize {
		cancel()
		return "", errors.BadRequest(fmt.Sprintf("Avatar exceeds %d bytes", MaxAvatarSize), nil)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set ACL: %v", err)
	}

	return c.publicURL(name), nil
}

func (c *CloudStorageClient) publicURL(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, name)
}

// DeleteAvatar removes an avatar previously returned by UploadAvatar. URLs
// outside this bucket's avatar folder are ignored.
func (c *CloudStorageClient) DeleteAvatar(ctx context.Context, fileURL string) error {
	prefix := c.publicURL(avatarFolder + "/")
	if !strings.HasPrefix(fileURL, prefix) {
		return nil
	}

	name := strings.TrimPrefix(fileURL, c.publicURL(""))
	if err := c.client.Bucket(c.bucketName).Object(name).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("failed to delete avatar: %v", err)
	}
	return nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
