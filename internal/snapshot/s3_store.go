package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/yourusername/odds-tracker/internal/models"
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store keeps one object per snapshot under a bucket prefix
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates a store using the default AWS credential chain
func NewS3Store(ctx context.Context, region, bucket, prefix string) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

// NewS3StoreWithClient creates a store on an existing client
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key
}

// List pages through the prefix and returns snapshot keys in ascending order
func (s *S3Store) List(ctx context.Context) ([]Ref, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var refs []Ref
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots in s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if strings.Contains(name, "/") || !IsSnapshotKey(name) {
				continue
			}
			refs = append(refs, Ref{Key: name})
		}
	}
	sortRefs(refs)
	return refs, nil
}

// Load downloads and decodes one snapshot object
func (s *S3Store) Load(ctx context.Context, ref Ref) (models.Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ref.Key)),
	})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %w", models.ErrCorruptSnapshot, ref.Key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %w", models.ErrCorruptSnapshot, ref.Key, err)
	}
	return Decode(ref.Key, data)
}

// Append uploads a snapshot object; an existing key is rejected
func (s *S3Store) Append(ctx context.Context, snap models.Snapshot) (Ref, error) {
	ref := Ref{Key: KeyFor(snap.Timestamp)}
	objectKey := s.objectKey(ref.Key)

	data, err := Encode(snap)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", models.ErrStorageWrite, err)
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err == nil {
		return Ref{}, fmt.Errorf("%w: %s already exists", models.ErrStorageWrite, ref.Key)
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return Ref{}, fmt.Errorf("%w: head %s: %w", models.ErrStorageWrite, ref.Key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Ref{}, fmt.Errorf("%w: put %s: %w", models.ErrStorageWrite, ref.Key, err)
	}
	return ref, nil
}

// Ping checks that the bucket is reachable
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("snapshot bucket %s unavailable: %w", s.bucket, err)
	}
	return nil
}
