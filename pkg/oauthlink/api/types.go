package api

import (
	"time"

	"github.com/tendant/social-post-imgur/pkg/notification"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// LinkageResponse is a linkage as shown to its owner. Tokens are never included.
type LinkageResponse struct {
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	DisplayName    string    `json:"display_name"`
	Expiry         time.Time `json:"expiry"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListLinkagesResponse struct {
	Linkages []LinkageResponse `json:"linkages"`
}

// PostRequest is the content to post
type PostRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// PostResponse describes the created post
type PostResponse struct {
	ID       string `json:"id"`
	Link     string `json:"link"`
	Attempts int    `json:"attempts"`
}

// PostOutcome is the result for one linkage when posting to all of them
type PostOutcome struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	ID             string `json:"id,omitempty"`
	Link           string `json:"link,omitempty"`
	Attempts       int    `json:"attempts,omitempty"`
	Error          string `json:"error,omitempty"`
}

type PostAllResponse struct {
	Results []PostOutcome `json:"results"`
}

type NoticesResponse struct {
	Notices []notification.Notice `json:"notices"`
}
