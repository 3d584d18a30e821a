package blobstore

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Provider backs the blobstore with an AWS S3 bucket, an alternate backing for
// snapshot and exequeue persistence when a job is configured for S3 rather than HDFS.
type S3Provider struct {
	*baseProvider

	s3Client *s3.Client
	bucket   string
}

// NewS3Provider returns an S3Provider that will write objects under bucket.
func NewS3Provider(bucket string) *S3Provider {
	return &S3Provider{
		baseProvider: newBaseProvider("", 0),
		bucket:       bucket,
	}
}

func (p *S3Provider) Connect(ctx context.Context) error {
	p.status = Connecting
	p.logger.Debug("Connecting to AWS S3", zap.String("bucket", p.bucket))

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		p.status = Disconnected
		p.logger.Error("Failed to load AWS SDK config", zap.Error(err))
		return err
	}

	p.s3Client = s3.NewFromConfig(sdkConfig)
	p.status = Connected

	p.logger.Debug("Connected to AWS S3", zap.String("bucket", p.bucket))
	return nil
}

func (p *S3Provider) Close() error {
	return nil
}

func (p *S3Provider) Replication() int {
	// S3 replication is managed by the storage class, not a per-client setting.
	return 3
}

func (p *S3Provider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		p.logger.Error("Failed to GetObject from S3", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return result.Body, nil
}

// Create buffers the write in memory and uploads the full object on Close, since S3's
// PutObject API takes the whole body up front rather than supporting incremental writes.
func (p *S3Provider) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	return &s3Writer{ctx: ctx, provider: p, key: key}, nil
}

func (p *S3Provider) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var continuationToken *string

	for {
		output, err := p.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			p.logger.Error("Failed to list S3 objects", zap.String("prefix", prefix), zap.Error(err))
			return nil, err
		}

		for _, obj := range output.Contents {
			keys = append(keys, *obj.Key)
		}

		if output.IsTruncated == nil || !*output.IsTruncated {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	return keys, nil
}

type s3Writer struct {
	ctx      context.Context
	provider *S3Provider
	key      string
	buf      bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	_, err := w.provider.s3Client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.provider.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		w.provider.logger.Error("Failed to PutObject to S3", zap.String("key", w.key), zap.Error(err))
	}
	return err
}
