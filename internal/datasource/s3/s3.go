// Package s3 implements an S3-backed data source: input files are objects
// listed under a bucket prefix and matched against the same glob patterns
// the local source uses.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"

	"starlake/internal/datasource"
)

// Lister enumerates objects in Bucket under Prefix matching a glob pattern.
type Lister struct {
	Bucket string
	Prefix string
	client *awss3.S3
}

// NewLister returns a Lister over the given session.
func NewLister(sess *session.Session, bucket, prefix string) *Lister {
	return &Lister{Bucket: bucket, Prefix: prefix, client: awss3.New(sess)}
}

// List implements datasource.Lister. Objects are listed under the fixed
// (wildcard-free) leading portion of the pattern and then matched against
// the full pattern with path.Match.
func (l *Lister) List(ctx context.Context, pattern string) ([]datasource.Source, error) {
	full := path.Join(l.Prefix, pattern)
	listPrefix := fixedPrefix(full)

	var keys []string
	err := l.client.ListObjectsV2PagesWithContext(ctx, &awss3.ListObjectsV2Input{
		Bucket: aws.String(l.Bucket),
		Prefix: aws.String(listPrefix),
	}, func(page *awss3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if ok, _ := path.Match(full, key); ok {
				keys = append(keys, key)
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("s3: list %s under %s: %w", pattern, listPrefix, err)
	}
	sort.Strings(keys)

	out := make([]datasource.Source, len(keys))
	for i, key := range keys {
		out[i] = &Object{bucket: l.Bucket, key: key, client: l.client}
	}
	return out, nil
}

// fixedPrefix returns the leading path elements of pattern up to the first
// element containing a wildcard.
func fixedPrefix(pattern string) string {
	elems := strings.Split(pattern, "/")
	var fixed []string
	for _, e := range elems {
		if strings.ContainsAny(e, "*?[") {
			break
		}
		fixed = append(fixed, e)
	}
	if len(fixed) == 0 {
		return ""
	}
	return strings.Join(fixed, "/") + "/"
}

// Object is a single S3 object data source.
type Object struct {
	bucket string
	key    string
	client *awss3.S3
}

// Name implements datasource.Source.
func (o *Object) Name() string { return "s3://" + o.bucket + "/" + o.key }

// Open streams the object body.
func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	res, err := o.client.GetObjectWithContext(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", o.Name(), err)
	}
	return res.Body, nil
}
