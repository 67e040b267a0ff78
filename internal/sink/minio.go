package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sramlab/pufrecon/internal/render"
)

// MinioAPI is the subset of the MinIO client used by MinioSink.
type MinioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioSink uploads images to a MinIO or other S3-compatible endpoint.
type MinioSink struct {
	client MinioAPI
	bucket string
	prefix string
}

// NewMinioSink wraps an existing client.
func NewMinioSink(client MinioAPI, bucket, prefix string) *MinioSink {
	return &MinioSink{client: client, bucket: bucket, prefix: prefix}
}

// MinioOptions holds connection settings for DialMinio.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// DialMinio creates a client with static credentials.
func DialMinio(o MinioOptions, bucket, prefix string) (*MinioSink, error) {
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create minio client: %w", err)
	}
	return NewMinioSink(client, bucket, prefix), nil
}

// Write uploads g as <prefix>/<name>.png.
func (s *MinioSink) Write(ctx context.Context, name string, g *render.Grid) error {
	data, err := EncodePNG(g)
	if err != nil {
		return err
	}
	key := objectKey(s.prefix, name)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentType})
	if err != nil {
		return fmt.Errorf("cannot upload %s/%s: %w", s.bucket, key, err)
	}
	return nil
}
