package sweep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pluginrefs/internal/config"
	"pluginrefs/internal/paths"
)

// Archiver persists sweep reports.
type Archiver interface {
	Archive(ctx context.Context, report *SweepReport) error
}

// ReportName is the file name of a report: kind-startTime-id.json.
func ReportName(report *SweepReport) string {
	return fmt.Sprintf("%s-%s-%s.json", report.Kind, report.StartedAt.Format("20060102T150405Z"), report.ID)
}

func encodeReport(report *SweepReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// DirArchiver writes reports into a local directory.
type DirArchiver struct {
	Dir string
}

func (a DirArchiver) Archive(ctx context.Context, report *SweepReport) error {
	data, err := encodeReport(report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(filepath.Join(a.Dir, ReportName(report)), data, 0644)
}

// S3Archiver uploads reports to an S3-compatible bucket.
type S3Archiver struct {
	client *minio.Client
	bucket string
	prefix string
	gzip   bool

	initOnce sync.Once
	initErr  error
}

// NewS3Archiver creates an archiver for cfg. The endpoint is host[:port]
// without a scheme.
func NewS3Archiver(cfg config.S3Config) (*S3Archiver, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/"), gzip: cfg.Gzip}, nil
}

func (a *S3Archiver) ensureBucket(ctx context.Context) error {
	a.initOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.initErr = err
			return
		}
		if !exists {
			a.initErr = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: "us-east-1"})
		}
	})
	return a.initErr
}

// Key returns the object key of a report.
func (a *S3Archiver) Key(report *SweepReport) string {
	key := path.Join(a.prefix, string(report.Kind), ReportName(report))
	if a.gzip {
		key += ".gz"
	}
	return key
}

func (a *S3Archiver) Archive(ctx context.Context, report *SweepReport) error {
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	data, err := encodeReport(report)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if a.gzip {
		if data, err = compress(data); err != nil {
			return err
		}
		opts.ContentEncoding = "gzip"
	}
	_, err = a.client.PutObject(ctx, a.bucket, a.Key(report), bytes.NewReader(data), int64(len(data)), opts)
	return err
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MultiArchiver archives to every target and returns the first error.
type MultiArchiver []Archiver

func (m MultiArchiver) Archive(ctx context.Context, report *SweepReport) error {
	var first error
	for _, a := range m {
		if err := a.Archive(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewArchiver builds the archiver described by cfg, or nil when neither a
// directory nor a bucket is configured.
func NewArchiver(cfg config.ReportConfig) (Archiver, error) {
	var m MultiArchiver
	if cfg.Dir != "" {
		m = append(m, DirArchiver{Dir: paths.ExpandHome(cfg.Dir)})
	}
	if cfg.S3.Endpoint != "" {
		s3, err := NewS3Archiver(cfg.S3)
		if err != nil {
			return nil, err
		}
		m = append(m, s3)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
