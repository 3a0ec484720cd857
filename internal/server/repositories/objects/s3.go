package objects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/gophdrive/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// S3API is the subset of *s3.Client the store uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Presigner is the subset of *s3.PresignClient the store uses.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Config locates an S3 compatible endpoint (AWS or MinIO).
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// NewS3Clients builds an API client and a presign client for cfg.
func NewS3Clients(ctx context.Context, cfg S3Config) (*s3.Client, *s3.PresignClient, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return client, newS3PresignClient(client), nil
}

// S3Store is a Bucket backed by one S3 bucket. SetIfAbsent uses
// If-None-Match and Take uses an ETag conditioned delete.
type S3Store struct {
	api     S3API
	presign S3Presigner
	bucket  string
}

func NewS3Store(api S3API, presign S3Presigner, bucket string) *S3Store {
	return &S3Store{api: api, presign: presign, bucket: bucket}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}

// isLostRace reports a failed conditional write.
func isLostRace(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, string, bool, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if isNotFound(err) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", false, fmt.Errorf("s3 read %s: %w", key, err)
	}
	return body, aws.ToString(out.ETag), true, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, _, found, err := s.get(ctx, key)
	return body, found, err
}

func (s *S3Store) put(ctx context.Context, key string, value []byte, ifNoneMatch *string) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		IfNoneMatch:   ifNoneMatch,
	})
	return err
}

func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.put(ctx, key, value, nil); err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	err := s.put(ctx, key, value, aws.String("*"))
	if isLostRace(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("s3 conditional put %s: %w", key, err)
	}
	return true, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Take(ctx context.Context, key string) ([]byte, bool, error) {
	body, etag, found, err := s.get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	_, err = s.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key, IfMatch: &etag})
	if isLostRace(err) || isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("s3 conditional delete %s: %w", key, err)
	}
	return body, true, nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// SignURL presigns a PUT when writable, a GET otherwise.
func (s *S3Store) SignURL(ctx context.Context, key string, readable, writable bool, ttl time.Duration) (string, error) {
	var (
		req *v4.PresignedHTTPRequest
		err error
	)
	switch {
	case writable:
		req, err = s.presign.PresignPutObject(ctx, &s3.PutObjectInput{Bucket: &s.bucket, Key: &key}, s3.WithPresignExpires(ttl))
	case readable:
		req, err = s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key}, s3.WithPresignExpires(ttl))
	default:
		return "", fmt.Errorf("%w: signed URL grants nothing", common.ErrorValidation)
	}
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// S3Provisioner creates real S3 buckets.
type S3Provisioner struct {
	api     S3API
	presign S3Presigner
}

func NewS3Provisioner(api S3API, presign S3Presigner) *S3Provisioner {
	return &S3Provisioner{api: api, presign: presign}
}

func (p *S3Provisioner) CreateBucket(ctx context.Context, name string) (Bucket, error) {
	_, err := p.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &name})
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil, fmt.Errorf("%w: bucket %s", common.ErrorAlreadyExists, name)
	}
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return NewS3Store(p.api, p.presign, name), nil
}
