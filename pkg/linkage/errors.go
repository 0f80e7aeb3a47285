package linkage

import (
	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
)

func errInvalid(field, reason string) error {
	return apperrors.InvalidInput(field, reason)
}

func errNotFound(provider, providerUserID string) error {
	return apperrors.NotFound("linkage", provider+"/"+providerUserID)
}

func errConflict(provider, providerUserID string) error {
	return apperrors.Newf(apperrors.ErrCodeLinkConflict, "%s account %s is linked to another user", provider, providerUserID).
		WithDetail("provider", provider).
		WithDetail("provider_user_id", providerUserID)
}
