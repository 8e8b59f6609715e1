// Package s3fs implements the storage.FS contract on an S3 bucket, giving
// the parquet writer overwrite semantics on object storage: RemoveAll is a
// prefix delete, Create streams an object upload, and directories are
// implicit in the key space.
package s3fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// FS is an S3-backed storage.FS rooted at bucket/prefix.
type FS struct {
	bucket   string
	prefix   string
	client   *s3.S3
	uploader *s3manager.Uploader
}

// New constructs an FS over the given session.
func New(sess *session.Session, bucket, prefix string) *FS {
	return &FS{
		bucket:   bucket,
		prefix:   prefix,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}
}

func (f *FS) key(p string) string {
	return path.Join(f.prefix, p)
}

// RemoveAll deletes every object under the path prefix. Missing prefixes are
// not an error, matching the overwrite contract.
func (f *FS) RemoveAll(ctx context.Context, p string) error {
	prefix := f.key(p) + "/"
	var pageErr error
	err := f.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		if len(page.Contents) == 0 {
			return true
		}
		objects := make([]*s3.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			objects[i] = &s3.ObjectIdentifier{Key: obj.Key}
		}
		_, pageErr = f.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(f.bucket),
			Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		return pageErr == nil
	})
	if err != nil {
		return fmt.Errorf("s3: list %s: %w", prefix, err)
	}
	if pageErr != nil {
		return fmt.Errorf("s3: delete under %s: %w", prefix, pageErr)
	}
	return nil
}

// MkdirAll is a no-op: S3 has no directories.
func (f *FS) MkdirAll(ctx context.Context, p string) error {
	return ctx.Err()
}

// Create opens a streaming upload to the object key. Bytes written flow
// through a pipe into the uploader; Close completes the upload and reports
// its error.
func (f *FS) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := f.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(f.bucket),
			Key:    aws.String(f.key(p)),
			Body:   pr,
		})
		// Unblock the writer if the upload dies mid-stream.
		pr.CloseWithError(err)
		done <- err
	}()
	return &uploadCloser{pw: pw, done: done}, nil
}

// errUploadAborted is fed into the pipe on Abort so the uploader fails
// instead of committing whatever bytes it has buffered.
var errUploadAborted = errors.New("s3: upload aborted")

type uploadCloser struct {
	pw   *io.PipeWriter
	done chan error
}

func (u *uploadCloser) Write(b []byte) (int, error) { return u.pw.Write(b) }

func (u *uploadCloser) Close() error {
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

// Abort implements storage.Aborter: it poisons the pipe, waits for the
// uploader goroutine to give up, and discards its error. No object is
// committed.
func (u *uploadCloser) Abort() error {
	u.pw.CloseWithError(errUploadAborted)
	<-u.done
	return nil
}
