// Package s3 provides a contentledger.Store on S3-compatible object storage.
//
// Every entry is one object named <prefix><hex key>. Writes use conditional
// requests (If-None-Match for inserts, If-Match for updates), so the bucket
// itself arbitrates between racing writers.
package s3

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

const (
	// DefaultPrefix is used when Config.Prefix is empty.
	DefaultPrefix = "contents/"

	maxUpdateAttempts = 16
)

// Config options for the S3 store
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	Prefix          string // Object name prefix (default: "contents/")
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// Client is the subset of *s3.Client the store needs.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Store implements contentledger.Store on an S3 bucket.
type Store struct {
	client Client
	bucket string
	prefix string
}

// New creates an S3 store from config, loading AWS credentials the same way
// the AWS CLI does unless static keys are given.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	store := NewWithClient(s3.NewFromConfig(awsCfg, s3Options...), config.Bucket, config.Prefix)
	if config.CreateBucketIfNotExist {
		if err := store.EnsureBucket(ctx, config.Region); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return store, nil
}

// NewWithClient creates a store on top of an existing client.
func NewWithClient(client Client, bucket, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// EnsureBucket creates the bucket in region if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context, region string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		if apiCode(err) == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, _, err := s.get(ctx, s.objectKey(key))
	return value, err
}

func (s *Store) Insert(ctx context.Context, key, value []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/cbor"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return contentledger.ErrAlreadyExists
		}
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Update retries the read-modify-write while a concurrent writer keeps
// changing the object's ETag.
func (s *Store) Update(ctx context.Context, key []byte, fn func(current []byte) ([]byte, error)) error {
	objectKey := s.objectKey(key)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, etag, err := s.get(ctx, objectKey)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(objectKey),
			Body:        bytes.NewReader(next),
			ContentType: aws.String("application/cbor"),
			IfMatch:     aws.String(etag),
		})
		if err == nil {
			return nil
		}
		if !isConditionFailure(err) {
			return fmt.Errorf("failed to put object: %w", err)
		}
	}
	return fmt.Errorf("object %s kept changing during update", objectKey)
}

func (s *Store) Scan(ctx context.Context, fn func(key, value []byte) error) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		for _, object := range page.Contents {
			objectKey := aws.ToString(object.Key)
			key, err := hex.DecodeString(strings.TrimPrefix(objectKey, s.prefix))
			if err != nil || len(key) != contentledger.KeySize {
				// Not one of ours.
				continue
			}
			value, _, err := s.get(ctx, objectKey)
			if err != nil {
				return err
			}
			if err := fn(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) get(ctx context.Context, objectKey string) ([]byte, string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, "", contentledger.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get object: %w", err)
	}
	defer result.Body.Close()

	value, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object: %w", err)
	}
	return value, aws.ToString(result.ETag), nil
}

// Hex keeps the bucket's lexicographic listing order equal to byte order.
func (s *Store) objectKey(key []byte) string {
	return s.prefix + hex.EncodeToString(key)
}

func isConditionFailure(err error) bool {
	switch apiCode(err) {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

func apiCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

var _ contentledger.Store = (*Store)(nil)
