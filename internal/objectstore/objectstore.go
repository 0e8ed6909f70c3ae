// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package objectstore hands out presigned S3 URLs for profile pictures and logos.
// The service never streams media itself, it only stores object keys.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

type Kind string

const (
	KindProfilePicture Kind = "profile-pictures"
	KindLogo           Kind = "logos"
)

var (
	ErrNotConfigured = errors.New("object storage is not configured")
	ErrUnknownKind   = errors.New("unknown upload kind")

	ErrUnsupportedContentType = errors.New("unsupported content type")
)

var contentTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	ForcePathStyle bool
	PresignTTL     time.Duration
}

type Upload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store presigns object URLs, a nil *Store behaves as unconfigured storage
type Store struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration

	now func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func ParseKind(v string) (Kind, error) {
	switch Kind(v) {
	case KindProfilePicture, KindLogo:
		return Kind(v), nil
	}
	return "", ErrUnknownKind
}

// PresignUpload returns a PUT URL for a new object of kind, the key must be stored on the profile afterwards
func (s *Store) PresignUpload(ctx context.Context, kind Kind, contentType string) (*Upload, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}

	ctx, span := s.tracer.Start(ctx, "objectstore.Store.PresignUpload")
	defer span.End()

	ext, ok := contentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedContentType, contentType)
	}

	key := fmt.Sprintf("%s/%s.%s", kind, uuid.New().String(), ext)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.ttl
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &Upload{
		URL:       req.URL,
		Key:       key,
		Method:    http.MethodPut,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// URL resolves a stored reference into a readable URL. Absolute URLs and references held while
// storage is unconfigured are returned unchanged.
func (s *Store) URL(ctx context.Context, ref string) string {
	if ref == "" || s == nil || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	ctx, span := s.tracer.Start(ctx, "objectstore.Store.URL")
	defer span.End()

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.ttl
	})
	if err != nil {
		s.logger.Errorf("failed to presign %s: %v", ref, err)
		return ref
	}

	return req.URL
}

// NewStore builds a Store, it returns nil without error when no endpoint is configured
func NewStore(ctx context.Context, cfg Config, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		logger.Info("object storage endpoint not set, uploads are disabled")
		return nil, nil
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	s := new(Store)
	s.presign = s3.NewPresignClient(client)
	s.bucket = cfg.Bucket
	s.ttl = cfg.PresignTTL
	s.now = time.Now

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s, nil
}
