package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pagebridge/pagebridge/internal/errkind"
)

// uploadBatchSize is the fixed per-batch slice of the manifest. Files in one
// batch upload concurrently; batches run in order.
const uploadBatchSize = 16

// Credentials are temporary object storage credentials bound to one remote
// path prefix.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SecurityToken   string
	Bucket          string
	Region          string
	Prefix          string
}

// ObjectPutter is the single-object upload contract. The production
// implementation wraps the S3-compatible storage client; tests substitute a
// fake.
type ObjectPutter interface {
	Put(ctx context.Context, key string, body io.Reader) error
}

type s3Putter struct {
	client *s3.Client
	bucket string
}

func (p *s3Putter) Put(ctx context.Context, key string, body io.Reader) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return err
}

func newS3Putter(ctx context.Context, creds Credentials) (*s3Putter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(creds.Region),
		awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			creds.SecurityToken,
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load storage SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://cos.%s.myqcloud.com", creds.Region))
		o.UsePathStyle = true
	})

	return &s3Putter{client: client, bucket: creds.Bucket}, nil
}

// Uploader pushes a local artifact to object storage under the credentials'
// remote prefix.
type Uploader struct {
	putter ObjectPutter
	prefix string
	debug  bool
}

// NewUploader creates an uploader backed by the S3-compatible storage client.
func NewUploader(ctx context.Context, creds Credentials, debug bool) (*Uploader, error) {
	putter, err := newS3Putter(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &Uploader{putter: putter, prefix: creds.Prefix, debug: debug}, nil
}

// NewUploaderWithPutter creates an uploader with a caller-supplied put
// implementation.
func NewUploaderWithPutter(putter ObjectPutter, prefix string, debug bool) *Uploader {
	return &Uploader{putter: putter, prefix: prefix, debug: debug}
}

// Upload validates localPath and uploads it: a zip archive becomes a single
// object at {prefix}/{basename}; a directory uploads every regular file under
// it in fixed-size batches. Any single failure aborts the whole upload; there
// is no partial-success acceptance and no per-file retry. Returns the remote
// prefix (directory) or the full object key (archive).
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	info, err := ValidateArtifact(localPath)
	if err != nil {
		return "", err
	}

	if !info.IsDir() {
		return u.uploadZip(ctx, localPath)
	}
	return u.uploadDirectory(ctx, localPath)
}

func (u *Uploader) uploadZip(ctx context.Context, localPath string) (string, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", errkind.Wrap(errkind.Validation, err, "failed to read archive %s", localPath)
	}

	key := ZipKey(localPath, u.prefix)
	if u.debug {
		fmt.Printf("[storage] put %s (%d bytes)\n", key, len(content))
	}

	if err := u.putter.Put(ctx, key, bytes.NewReader(content)); err != nil {
		return "", errkind.Wrap(errkind.Upstream, err, "failed to upload %s", key)
	}

	return key, nil
}

func (u *Uploader) uploadDirectory(ctx context.Context, localPath string) (string, error) {
	manifest, err := BuildManifest(localPath, u.prefix)
	if err != nil {
		return "", err
	}

	for start := 0; start < len(manifest); start += uploadBatchSize {
		end := start + uploadBatchSize
		if end > len(manifest) {
			end = len(manifest)
		}
		if err := u.uploadBatch(ctx, manifest[start:end]); err != nil {
			return "", err
		}
	}

	return u.prefix, nil
}

func (u *Uploader) uploadBatch(ctx context.Context, batch []FileEntry) error {
	errChan := make(chan error, len(batch))

	var wg sync.WaitGroup
	for _, entry := range batch {
		wg.Add(1)
		go func(entry FileEntry) {
			defer wg.Done()

			f, err := os.Open(entry.LocalPath)
			if err != nil {
				errChan <- errkind.Wrap(errkind.Validation, err, "failed to open %s", entry.LocalPath)
				return
			}
			defer f.Close()

			if u.debug {
				fmt.Printf("[storage] put %s (%d bytes)\n", entry.RemoteKey, entry.Size)
			}

			if err := u.putter.Put(ctx, entry.RemoteKey, f); err != nil {
				errChan <- errkind.Wrap(errkind.Upstream, err, "failed to upload %s", entry.RemoteKey)
			}
		}(entry)
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}
