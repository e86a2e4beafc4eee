package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/joseph-ayodele/clinical-notes/internal/blob"
)

func init() {
	blob.Providers.Register("s3", func(ctx context.Context, params map[string]string) (blob.Store, error) {
		return New(ctx, Options{
			Bucket:   params["bucket"],
			Region:   params["region"],
			Prefix:   params["prefix"],
			Endpoint: params["endpoint"],
		})
	})
}

var _ blob.Store = (*Store)(nil)

type Options struct {
	Bucket   string // required
	Region   string
	Prefix   string // key prefix, e.g. "uploads/"
	Endpoint string // custom endpoint, e.g. MinIO
}

type metadata struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store keeps two objects per blob:
//
//	<prefix><id>/content
//	<prefix><id>/metadata.json
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 blob store: bucket is required")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Store{
		client: s3.NewFromConfig(cfg, s3Opts...),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (s *Store) contentKey(id string) string  { return s.prefix + id + "/content" }
func (s *Store) metadataKey(id string) string { return s.prefix + id + "/metadata.json" }

func (s *Store) Put(ctx context.Context, b *blob.Blob) error {
	if _, err := s.readMetadata(ctx, b.ID); err == nil {
		return fmt.Errorf("blob %s: %w", b.ID, blob.ErrExists)
	} else if !errors.Is(err, blob.ErrNotFound) {
		return err
	}

	meta, err := json.Marshal(metadata{
		ID:          b.ID,
		Filename:    b.Filename,
		ContentType: b.ContentType,
		Size:        b.Size,
		CreatedAt:   b.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.contentKey(b.ID)),
		Body:        bytes.NewReader(b.Content),
		ContentType: aws.String(b.ContentType),
	}); err != nil {
		return fmt.Errorf("put content: %w", err)
	}
	// metadata last: a blob is visible only once both objects exist
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metadataKey(b.ID)),
		Body:        bytes.NewReader(meta),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, id string) (*blob.Blob, error) {
	m, err := s.readMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	return &blob.Blob{
		Ref:       blob.Ref{ID: m.ID, Filename: m.Filename, ContentType: m.ContentType},
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *Store) Get(ctx context.Context, id string) (*blob.Blob, error) {
	b, err := s.Stat(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.contentKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	defer out.Body.Close()

	b.Content, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read content body: %w", err)
	}
	return b, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.readMetadata(ctx, id); err != nil {
		return err
	}
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{
			Objects: []s3types.ObjectIdentifier{
				{Key: aws.String(s.metadataKey(id))},
				{Key: aws.String(s.contentKey(id))},
			},
			Quiet: aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	return nil
}

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) readMetadata(ctx context.Context, id string) (*metadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metadataKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	defer out.Body.Close()

	var m metadata
	if err := json.NewDecoder(out.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
	}
	return &m, nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// some S3-compatible services answer a bare 404
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
