package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"github.com/simplepos/pos-service/internal/config"
)

// ProductImagesBucket is the one bucket this service owns.
const ProductImagesBucket = "product-images"

const signedUploadTTL = 10 * time.Minute

var ErrInvalidAssetURL = errors.New("asset URL does not belong to the product images bucket")

type Bucket struct {
	client        *minio.Client
	bucketName    string
	publicBaseURL string
}

func NewBucket(cfg config.StorageConfig) (*Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create client: %w", err)
	}

	return &Bucket{
		client:        client,
		bucketName:    ProductImagesBucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// SignedUploadURL issues a short-lived URL the dashboard can PUT a new
// product image to without going through this service.
func (b *Bucket) SignedUploadURL(ctx context.Context, objectName string) (string, error) {
	u, err := b.client.PresignedPutObject(ctx, b.bucketName, objectName, signedUploadTTL)
	if err != nil {
		return "", fmt.Errorf("storage: failed to presign upload for %s: %w", objectName, err)
	}

	return u.String(), nil
}

func (b *Bucket) RemoveByPublicURL(ctx context.Context, publicURL string) error {
	objectPath, err := b.ObjectPathFromPublicURL(publicURL)
	if err != nil {
		return err
	}

	if err := b.client.RemoveObject(ctx, b.bucketName, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: failed to remove object %s: %w", objectPath, err)
	}

	log.Debug().Str("object", objectPath).Str("bucket", b.bucketName).Msg("storage: object removed")

	return nil
}

// ObjectPathFromPublicURL strips the bucket's public prefix from a stored
// image URL. URLs that do not carry the prefix are legacy or foreign
// references and map to ErrInvalidAssetURL so callers can apply their own
// policy.
func (b *Bucket) ObjectPathFromPublicURL(publicURL string) (string, error) {
	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", b.publicBaseURL, b.bucketName)

	objectPath, found := strings.CutPrefix(publicURL, prefix)
	if !found || objectPath == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidAssetURL, publicURL)
	}

	return objectPath, nil
}
