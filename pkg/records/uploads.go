// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"
	"errors"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/objectstore"
	"github.com/canonical/care-service/pkg/tenant"
)

// PresignUpload hands out a direct upload URL for a profile picture or logo. The returned key is
// what profile updates store.
func (s *Service) PresignUpload(ctx context.Context, caller *tenant.Context, kind, contentType string) (*objectstore.Upload, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.PresignUpload")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionUpload, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	k, err := objectstore.ParseKind(kind)
	if err != nil {
		return nil, ErrInvalidUpload.WithMessage("Unsupported upload kind.")
	}

	upload, err := s.objects.PresignUpload(ctx, k, contentType)
	switch {
	case errors.Is(err, objectstore.ErrNotConfigured):
		return nil, ErrUploadsUnavailable
	case errors.Is(err, objectstore.ErrUnsupportedContentType):
		return nil, ErrInvalidUpload.WithMessage("Unsupported content type, use image/jpeg, image/png or image/webp.")
	case err != nil:
		s.logger.Errorf("failed to presign %s upload: %v", k, err)
		return nil, ErrUploadsUnavailable.Wrap(err)
	}

	return upload, nil
}
