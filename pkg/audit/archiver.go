package audit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver seals a batch of entries into a content-addressed segment and
// uploads it to S3 for long-term, off-host retention. Archival is a
// best-effort side effect: a failed upload never blocks or fails the
// decision path that produced the entries.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// ArchiverConfig configures an S3-backed Archiver.
type ArchiverConfig struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// NewArchiver constructs an Archiver from cfg.
func NewArchiver(ctx context.Context, cfg ArchiverConfig) (*Archiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("audit: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ArchiveSegment serializes entries as a single JSON array, keys the object
// by the SHA-256 hash of that payload, and uploads it if not already
// present. It returns the content hash used as the object key.
func (a *Archiver) ArchiveSegment(ctx context.Context, entries []Entry) (string, error) {
	payload, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("audit: failed to marshal segment: %w", err)
	}

	sum := sha256.Sum256(payload)
	hashStr := hex.EncodeToString(sum[:])
	key := a.prefix + hashStr + ".json"

	_, err = a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return hashStr, nil
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("audit: s3 put failed: %w", err)
	}

	return hashStr, nil
}
