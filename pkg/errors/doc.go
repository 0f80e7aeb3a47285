// Package errors provides structured error handling with error codes for social-post-imgur.
//
// Every failure that crosses a component boundary (login flow, linkage storage,
// downstream API calls) is reported as an *Error carrying one of the codes below, so
// HTTP adapters can map it to a redirect or status without inspecting provider payloads.
//
// # Basic Usage
//
//	import "github.com/tendant/social-post-imgur/pkg/errors"
//
//	// Create a simple error
//	err := errors.New(errors.ErrCodeStateMismatch, "state does not match pending request")
//
//	// Wrap an existing error
//	err := errors.Wrap(httpErr, errors.ErrCodeAuthExchangeFailed, "token exchange failed")
//
//	// Downstream calls carry a reason
//	err := errors.APICallFailed(errors.ReasonUnauthorized, httpErr)
//
// # Error Codes
//
// Startup:
//   - ErrCodeConfiguration
//
// Login flow:
//   - ErrCodeUserCancelled
//   - ErrCodeStateMismatch
//   - ErrCodeAuthExchangeFailed
//   - ErrCodeProfileFetchFailed
//   - ErrCodeLinkConflict
//   - ErrCodeSignupDisabled
//
// Downstream API:
//   - ErrCodeAPICallFailed, with a reason of unlinked, unauthorized,
//     transient-exhausted or rejected
//
// Generic:
//   - ErrCodeInternal
//   - ErrCodeInvalidInput
//   - ErrCodeNotFound
//
// # Inspecting Errors
//
//	if errors.IsCode(err, errors.ErrCodeLinkConflict) {
//		// ask the user to sign in with the owning account
//	}
//
//	if reason, ok := errors.GetAPICallReason(err); ok && reason == errors.ReasonUnauthorized {
//		// prompt re-linking
//	}
//
// The package name shadows the standard library; import it with an alias when both
// are needed:
//
//	import (
//		"errors"
//		apperrors "github.com/tendant/social-post-imgur/pkg/errors"
//	)
package errors
