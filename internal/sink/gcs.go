package sink

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/logging"
)

// GCSProvider saves results into a Google Cloud Storage bucket.
type GCSProvider struct {
	Client     *storage.Client
	BucketName string
	Prefix     string
}

// NewGCSProvider initializes a GCS client and verifies the bucket is
// reachable. Authentication is handled via Application Default Credentials.
func NewGCSProvider(ctx context.Context, bucketName, prefix string) (*GCSProvider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	// Fail fast on startup if the bucket is missing or inaccessible.
	bkt := client.Bucket(bucketName)
	if _, err := bkt.Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logging.L.Warn("Failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", bucketName, err)
	}

	return &GCSProvider{
		Client:     client,
		BucketName: bucketName,
		Prefix:     prefix,
	}, nil
}

// Save uploads the data to prefix/objectName in the bucket.
func (g *GCSProvider) Save(ctx context.Context, objectName string, data []byte) error {
	name := objectName
	if g.Prefix != "" {
		name = g.Prefix + "/" + objectName
	}
	wc := g.Client.Bucket(g.BucketName).Object(name).NewWriter(ctx)

	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			logging.L.Warn("Failed to close GCS writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("write GCS object %s: %w", name, err)
	}

	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close GCS writer for object %s: %w", name, err)
	}
	return nil
}
