package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// CloudStorageBlobs is a BlobStore writing to a Firebase Storage bucket.
type CloudStorageBlobs struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewCloudStorageBlobs wraps a bucket handle, typically from firebase.App.Storage.
func NewCloudStorageBlobs(bucket *gcs.BucketHandle, bucketName string) *CloudStorageBlobs {
	return &CloudStorageBlobs{bucket: bucket, bucketName: bucketName}
}

// Put uploads data and returns a Firebase download URL. The download token
// is stored on the object metadata the same way the Firebase client SDKs do.
func (b *CloudStorageBlobs) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	token := uuid.NewString()

	w := b.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", path, err)
	}

	return downloadURL(b.bucketName, path, token), nil
}

func downloadURL(bucket, path, token string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(path), "+", "%20")
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s", bucket, escaped, token)
}
