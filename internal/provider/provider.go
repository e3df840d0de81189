// internal/provider/provider.go
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dsablic/weathertop/internal/awsops"
)

var (
	// ErrNotFound is returned when a document or unit does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnexpectedStatus wraps any non-2xx response other than 404.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Fetcher reads a named JSON document from a coverage location.
type Fetcher interface {
	Fetch(ctx context.Context, name string, query url.Values) ([]byte, error)
}

// NewFetcher returns an S3Fetcher for s3://bucket/prefix locations and an
// HTTPFetcher otherwise.
func NewFetcher(location string, client *http.Client, s3c awsops.S3Client) (Fetcher, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse coverage location: %w", err)
	}
	switch u.Scheme {
	case "s3":
		if s3c == nil {
			return nil, fmt.Errorf("coverage location %s needs an S3 client", location)
		}
		return NewS3Fetcher(u.Host, strings.Trim(u.Path, "/"), s3c), nil
	case "http", "https":
		return NewHTTPFetcher(location, client), nil
	default:
		return nil, fmt.Errorf("unsupported coverage location %q", location)
	}
}

// HTTPFetcher reads documents relative to a base URL.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string, query url.Values) ([]byte, error) {
	target := f.baseURL + "/" + url.PathEscape(name)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return get(ctx, f.client, target)
}

// S3Fetcher reads documents from a bucket under a key prefix.
type S3Fetcher struct {
	bucket string
	prefix string
	client awsops.S3Client
}

func NewS3Fetcher(bucket, prefix string, client awsops.S3Client) *S3Fetcher {
	return &S3Fetcher{bucket: bucket, prefix: prefix, client: client}
}

// Fetch ignores query.
func (f *S3Fetcher) Fetch(ctx context.Context, name string, _ url.Values) ([]byte, error) {
	key := path.Join(f.prefix, name)
	start := time.Now()

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", f.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", f.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", f.bucket, key, err)
	}
	slog.Debug("fetched", "url", "s3://"+f.bucket+"/"+key, "bytes", len(data), "elapsed", time.Since(start))
	return data, nil
}

func get(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	slog.Debug("fetched", "url", target, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s returned %d: %w", target, resp.StatusCode, ErrUnexpectedStatus)
	}
	return body, nil
}
