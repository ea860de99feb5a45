package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/extract"
	"github.com/cloo-solutions/quizgen/internal/storage"
)

const (
	DefaultDownloadTimeout  = 120 * time.Second
	DefaultMaxDownloadBytes = 100 << 20
)

var errTooLarge = errors.New("file exceeds the download size limit")

// ObjectSource reads objects from any bucket of the configured S3 endpoint.
type ObjectSource interface {
	HeadObjectIn(ctx context.Context, bucket, key string) (*storage.ObjectMetadata, error)
	GetObjectFrom(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, *storage.ObjectMetadata, error)
}

// FetcherConfig controls which sources a Fetcher accepts.
type FetcherConfig struct {
	Timeout    time.Duration
	MaxBytes   int64
	AllowLocal bool
}

// Fetcher resolves source files given as http(s)://, s3:// or, when
// enabled, file:// URLs.
type Fetcher struct {
	http       *http.Client
	objects    ObjectSource
	maxBytes   int64
	allowLocal bool
}

func NewFetcher(objects ObjectSource, cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDownloadTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxDownloadBytes
	}
	return &Fetcher{
		http:       &http.Client{Timeout: cfg.Timeout},
		objects:    objects,
		maxBytes:   cfg.MaxBytes,
		allowLocal: cfg.AllowLocal,
	}
}

type sourceRef struct {
	scheme string
	bucket string
	key    string
	path   string
	raw    string
}

func (f *Fetcher) parse(raw string) (sourceRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return sourceRef{}, &domain.DownloadError{URL: raw, Err: err}
	}

	ref := sourceRef{scheme: strings.ToLower(u.Scheme), raw: raw}
	switch ref.scheme {
	case "http", "https":
	case "s3":
		ref.bucket = u.Host
		ref.key = strings.TrimPrefix(u.Path, "/")
		if ref.bucket == "" || ref.key == "" {
			return sourceRef{}, &domain.DownloadError{URL: raw, Err: errors.New("s3 url needs a bucket and a key")}
		}
		if f.objects == nil {
			return sourceRef{}, &domain.DownloadError{URL: raw, Err: errors.New("s3 sources are not configured")}
		}
	case "file":
		if !f.allowLocal {
			return sourceRef{}, &domain.DownloadError{URL: raw, Err: errors.New("local files are disabled")}
		}
		ref.path = u.Path
	default:
		return sourceRef{}, &domain.DownloadError{URL: raw, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	return ref, nil
}

// ModifiedTime returns the last modification time of the source. Sources
// that do not report one yield the zero time.
func (f *Fetcher) ModifiedTime(ctx context.Context, raw string) (time.Time, error) {
	ref, err := f.parse(raw)
	if err != nil {
		return time.Time{}, err
	}

	switch ref.scheme {
	case "s3":
		meta, err := f.objects.HeadObjectIn(ctx, ref.bucket, ref.key)
		if err != nil {
			return time.Time{}, &domain.DownloadError{URL: raw, Err: err}
		}
		return meta.LastModified.UTC(), nil
	case "file":
		info, err := os.Stat(ref.path)
		if err != nil {
			return time.Time{}, &domain.DownloadError{URL: raw, Err: err}
		}
		return info.ModTime().UTC(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return time.Time{}, &domain.DownloadError{URL: raw, Err: err}
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return time.Time{}, &domain.DownloadError{URL: raw, Err: err}
	}
	resp.Body.Close()

	// Servers rejecting HEAD still serve GET; treat the time as unknown.
	if resp.StatusCode >= 400 {
		return time.Time{}, nil
	}
	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return time.Time{}, nil
	}
	t, err := http.ParseTime(lm)
	if err != nil {
		return time.Time{}, nil
	}
	return t.UTC(), nil
}

// Fetch returns the raw bytes of the source.
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, error) {
	ref, err := f.parse(raw)
	if err != nil {
		return nil, err
	}

	switch ref.scheme {
	case "s3":
		data, _, err := f.objects.GetObjectFrom(ctx, ref.bucket, ref.key, f.maxBytes)
		if err != nil {
			return nil, &domain.DownloadError{URL: raw, Err: err}
		}
		return data, nil
	case "file":
		file, err := os.Open(ref.path)
		if err != nil {
			return nil, &domain.DownloadError{URL: raw, Err: err}
		}
		defer file.Close()
		return f.readLimited(raw, file)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, &domain.DownloadError{URL: raw, Err: err}
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &domain.DownloadError{URL: raw, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.DownloadError{URL: raw, Status: resp.StatusCode}
	}
	return f.readLimited(raw, resp.Body)
}

func (f *Fetcher) readLimited(raw string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, &domain.DownloadError{URL: raw, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, &domain.DownloadError{URL: raw, Err: errTooLarge}
	}
	if len(data) == 0 {
		return nil, &domain.DownloadError{URL: raw, Err: errors.New("empty file")}
	}
	return data, nil
}

// PDFLoader returns a Loader that fetches the PDF at raw and extracts its
// text.
func (f *Fetcher) PDFLoader(raw, name string) Loader {
	return func(ctx context.Context) (string, error) {
		data, err := f.Fetch(ctx, raw)
		if err != nil {
			return "", err
		}
		text, err := extract.PDFBytes(data)
		if err != nil {
			return "", &domain.ExtractionError{Source: name, Reason: "unreadable pdf", Err: err}
		}
		return text, nil
	}
}
