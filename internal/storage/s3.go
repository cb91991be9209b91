package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vik9541/super-brain-digital-twin/internal/util"
	"github.com/vik9541/super-brain-digital-twin/pkg/recommend"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

// S3ModelStore persists trained model weights as JSON objects under a key
// prefix in the configured bucket, one object per workspace. It is the
// durable alternative to the local-directory store for multi-instance
// deployments where any replica may serve any workspace.
type S3ModelStore struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ recommend.ModelStore = (*S3ModelStore)(nil)

// NewS3ModelStore creates a model store writing to the given bucket. An
// empty prefix defaults to "models".
func NewS3ModelStore(client *s3.Client, bucket, prefix string) *S3ModelStore {
	if prefix == "" {
		prefix = "models"
	}
	return &S3ModelStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3ModelStore) key(workspaceID string) string {
	return fmt.Sprintf("%s/%s.json", s.prefix, workspaceID)
}

func (s *S3ModelStore) Save(ctx context.Context, workspaceID string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(workspaceID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload model to S3: %v", err)
	}
	return nil
}

func (s *S3ModelStore) Load(ctx context.Context, workspaceID string) ([]byte, time.Time, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(workspaceID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, time.Time{}, recommend.ErrModelNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to get model from S3: %v", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read model contents: %v", err)
	}

	savedAt := time.Time{}
	if result.LastModified != nil {
		savedAt = *result.LastModified
	}
	return buf.Bytes(), savedAt, nil
}

func (s *S3ModelStore) Delete(ctx context.Context, workspaceID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(workspaceID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete model from S3: %v", err)
	}
	return nil
}
