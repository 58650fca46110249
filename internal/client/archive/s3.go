// Package archive copies generated images into an S3-compatible bucket
// before their public URLs expire.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/imagegen/internal/client/config"
	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/logging"
	"github.com/dmitrijs2005/imagegen/internal/netx"
	"github.com/google/uuid"
)

// ErrDisabled is returned by New when no bucket is configured.
var ErrDisabled = errors.New("archive disabled")

const defaultExt = ".png"

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// test seams
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newObjectID = uuid.NewString
)

// S3Archiver downloads each image of a result and stores it under
// <prefix>/<yyyy>/<mm>/<dd>/<seed>-<index>-<uuid><ext>.
type S3Archiver struct {
	bucket string
	prefix string
	s3     objectPutter
	http   *http.Client
	log    logging.Logger
}

// New builds an archiver from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies. A custom
// Endpoint switches to path-style addressing, which MinIO and most
// S3-compatible stores expect.
func New(ctx context.Context, cfg config.ArchiveConfig, log logging.Logger) (*S3Archiver, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if log == nil {
		log = logging.Nop()
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		s3:     client,
		http:   &http.Client{},
		log:    log.With("component", "archive", "bucket", cfg.Bucket),
	}, nil
}

// Archive stores every image of res. A failing image does not stop the
// others; the keys written so far are returned with the joined errors.
func (a *S3Archiver) Archive(ctx context.Context, res *models.GenerationResult) ([]string, error) {
	day := res.ReceivedAt
	if day.IsZero() {
		day = time.Now()
	}

	var keys []string
	var errs []error
	for _, img := range res.Images {
		key, err := a.archiveOne(ctx, res.Seed, day, img)
		if err != nil {
			a.log.Warn(ctx, "image not archived", "image_index", img.Index, "error", err)
			errs = append(errs, fmt.Errorf("image %d: %w", img.Index, err))
			continue
		}
		a.log.Debug(ctx, "image archived", "image_index", img.Index, "key", key)
		keys = append(keys, key)
	}
	return keys, errors.Join(errs...)
}

func (a *S3Archiver) archiveOne(ctx context.Context, seed int64, day time.Time, img models.ImageResult) (string, error) {
	body, contentType, err := netx.Download(ctx, a.http, img.PublicURL)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	key := ObjectKey(a.prefix, day, seed, img.Index, newObjectID(), extension(img.PublicURL, contentType))

	in := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"seed":     fmt.Sprint(seed),
			"oss-path": img.OSSPath,
		},
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := a.s3.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// ObjectKey lays out an archive key. An empty prefix is omitted.
func ObjectKey(prefix string, day time.Time, seed int64, index int, id, ext string) string {
	key := fmt.Sprintf("%04d/%02d/%02d/%d-%d-%s%s", day.Year(), day.Month(), day.Day(), seed, index, id, ext)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// extension prefers the URL's own extension, then the content type.
func extension(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "image/png":
			return ".png"
		case "image/jpeg":
			return ".jpg"
		case "image/webp":
			return ".webp"
		}
		if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
			return exts[0]
		}
	}
	return defaultExt
}
