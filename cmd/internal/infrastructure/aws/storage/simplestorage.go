package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	filestore "github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/storage"
)

const basePath = "attachments/"

// S3API is the subset of the S3 client the store calls.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Store keeps files under the attachments/ prefix of a bucket. Keys handed
// out exclude the prefix.
type S3Store struct {
	bucket string
	region string
	client S3API
}

var _ filestore.FileStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, region, bucket string) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("S3_BUCKET_NAME is required for the s3 storage driver")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), region, bucket), nil
}

func NewS3StoreWithClient(client S3API, region, bucket string) *S3Store {
	return &S3Store{
		bucket: bucket,
		region: region,
		client: client,
	}
}

func (s *S3Store) Save(ctx context.Context, r io.Reader, originalName string) (*filestore.StoredFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	key := filestore.NewKey(originalName)
	mimeType := mime.TypeByExtension(filepath.Ext(key))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(basePath + key),
		Body:        bytes.NewReader(data),
		ContentType: &mimeType,
	}

	if _, err = s.client.PutObject(ctx, input); err != nil {
		return nil, err
	}

	return &filestore.StoredFile{
		Key:  key,
		URL:  fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s%s", s.bucket, s.region, basePath, key),
		Size: int64(len(data)),
	}, nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(basePath + key),
	})
	if isNotFound(err) {
		return nil, filestore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(basePath + key),
	})
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *S3Store) List(ctx context.Context) ([]filestore.Object, error) {
	objects := []filestore.Object{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(basePath),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), basePath)
			if key == "" || strings.Contains(key, "/") {
				continue
			}
			objects = append(objects, filestore.Object{Key: key, ModTime: aws.ToTime(obj.LastModified)})
		}
	}
	return objects, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
