package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nijaru/vidscribe/config"
	"github.com/nijaru/vidscribe/models"
)

const keyPrefix = "transcripts/"

// SpacesClient archives results to an S3-compatible bucket such as
// DigitalOcean Spaces or MinIO.
type SpacesClient struct {
	client *s3.Client
	bucket string
}

func NewSpacesClient(ctx context.Context, cfg config.SpacesConfig) (*SpacesClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &SpacesClient{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

type archivedTranscript struct {
	*models.TranscriptionResult
	RequestID  string    `json:"request_id"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Key returns the object key used for a request's transcript.
func Key(requestID string) string {
	return keyPrefix + requestID + ".json"
}

func (s *SpacesClient) SaveTranscript(ctx context.Context, requestID string, result *models.TranscriptionResult) error {
	data, err := json.Marshal(archivedTranscript{
		TranscriptionResult: result,
		RequestID:           requestID,
		ArchivedAt:          time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(Key(requestID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save to Spaces: %w", err)
	}
	return nil
}
