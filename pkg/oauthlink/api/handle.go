package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
	"github.com/tendant/social-post-imgur/pkg/linkage"
	"github.com/tendant/social-post-imgur/pkg/notification"
	"github.com/tendant/social-post-imgur/pkg/oauthlink"
	"github.com/tendant/social-post-imgur/pkg/poster"
	"github.com/tendant/social-post-imgur/pkg/session"
)

const (
	DefaultPostLoginURL = "/user"
	DefaultLoginURL     = "/user/login"
)

type provider struct {
	service *oauthlink.Service
	invoker *poster.Invoker
}

// Handle serves the browser login legs and the linkage API.
type Handle struct {
	providers    map[string]provider
	linkages     linkage.Repository
	flash        *notification.FlashNotifier
	cookie       session.CookieOptions
	postLoginURL string
	loginURL     string
}

// Option configures the Handle
type Option func(*Handle)

// WithProvider registers a provider. The invoker may be nil when posting is not offered.
func WithProvider(service *oauthlink.Service, invoker *poster.Invoker) Option {
	return func(h *Handle) {
		h.providers[service.Provider()] = provider{service: service, invoker: invoker}
	}
}

// WithLinkageRepository sets the repository used to list and check linkages
func WithLinkageRepository(repo linkage.Repository) Option {
	return func(h *Handle) {
		h.linkages = repo
	}
}

// WithFlash sets where queued notices are drained from
func WithFlash(flash *notification.FlashNotifier) Option {
	return func(h *Handle) {
		h.flash = flash
	}
}

// WithCookieOptions sets how the session cookie is reissued when a callback signs the browser in.
// Use the options given to session.EnsureID.
func WithCookieOptions(opts session.CookieOptions) Option {
	return func(h *Handle) {
		h.cookie = opts
	}
}

// WithRedirects sets the pages the callback returns the browser to
func WithRedirects(postLoginURL, loginURL string) Option {
	return func(h *Handle) {
		if postLoginURL != "" {
			h.postLoginURL = postLoginURL
		}
		if loginURL != "" {
			h.loginURL = loginURL
		}
	}
}

func NewHandle(opts ...Option) *Handle {
	h := &Handle{
		providers:    make(map[string]provider),
		postLoginURL: DefaultPostLoginURL,
		loginURL:     DefaultLoginURL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterBrowserRoutes registers the routes visited by the browser.
// They need the session.EnsureID middleware.
func (h *Handle) RegisterBrowserRoutes(r chi.Router) {
	r.Get("/connect/{provider}", h.Connect)
	r.Get("/connect/{provider}/callback", h.Callback)
}

// RegisterSessionAPIRoutes registers the API routes scoped to the browser session.
// They need the session.EnsureID middleware.
func (h *Handle) RegisterSessionAPIRoutes(r chi.Router) {
	r.Get("/notices", h.ListNotices)
}

// RegisterAPIRoutes registers the routes that act for the bearer of a JWT.
// They need the jwtauth Verifier and Authenticator middleware.
func (h *Handle) RegisterAPIRoutes(r chi.Router) {
	r.Get("/linkages", h.ListLinkages)
	r.Post("/linkages/{provider}/{providerUserID}/posts", h.PostToLinkage)
	r.Post("/posts", h.PostAll)
}

func (h *Handle) lookupProvider(w http.ResponseWriter, r *http.Request) (provider, bool) {
	name := chi.URLParam(r, "provider")
	p, ok := h.providers[name]
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Error:            "provider_not_found",
			ErrorDescription: "Provider not found or disabled",
		})
	}
	return p, ok
}

// Connect handles GET /connect/{provider}
func (h *Handle) Connect(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookupProvider(w, r)
	if !ok {
		return
	}

	// The service has already left a notice for the login page.
	result, err := p.service.Connect(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		slog.Error("Failed to initiate OAuth2 flow", "provider", p.service.Provider(), "error", err)
		http.Redirect(w, r, h.loginURL, http.StatusFound)
		return
	}

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles GET /connect/{provider}/callback.
// The browser always ends up on a page of ours; the service leaves a notice describing the outcome.
func (h *Handle) Callback(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookupProvider(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	result, err := p.service.Callback(r.Context(), oauthlink.CallbackRequest{
		SessionID:        session.IDFromContext(r.Context()),
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		http.Redirect(w, r, h.loginURL, http.StatusFound)
		return
	}
	if result.SessionID != "" {
		session.SetCookie(w, h.cookie, result.SessionID)
	}
	http.Redirect(w, r, h.postLoginURL, http.StatusFound)
}

// ListNotices handles GET /api/v1/notices
func (h *Handle) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices := []notification.Notice{}
	if h.flash != nil {
		var err error
		notices, err = h.flash.Drain(r.Context(), session.IDFromContext(r.Context()))
		if err != nil {
			slog.Error("Failed to drain notices", "error", err)
			writeError(w, r, err)
			return
		}
	}
	render.JSON(w, r, NoticesResponse{Notices: notices})
}

// ListLinkages handles GET /api/v1/linkages
func (h *Handle) ListLinkages(w http.ResponseWriter, r *http.Request) {
	userID, err := localUserID(r)
	if err != nil {
		unauthorized(w, r, err)
		return
	}

	linkages, err := h.linkages.ListForLocalUser(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list linkages", "user_id", userID, "error", err)
		writeError(w, r, err)
		return
	}

	response := ListLinkagesResponse{Linkages: []LinkageResponse{}}
	if err := copier.Copy(&response.Linkages, &linkages); err != nil {
		slog.Error("Failed to map linkages", "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, response)
}

// PostToLinkage handles POST /api/v1/linkages/{provider}/{providerUserID}/posts
func (h *Handle) PostToLinkage(w http.ResponseWriter, r *http.Request) {
	userID, err := localUserID(r)
	if err != nil {
		unauthorized(w, r, err)
		return
	}
	p, ok := h.lookupProvider(w, r)
	if !ok {
		return
	}
	providerUserID := chi.URLParam(r, "providerUserID")

	// Linkages of other users are reported exactly like missing ones.
	l, err := h.linkages.Get(r.Context(), p.service.Provider(), providerUserID)
	if err != nil && !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		slog.Error("Failed to load linkage", "provider_user_id", providerUserID, "error", err)
		writeError(w, r, err)
		return
	}
	if err != nil || l.LocalUserID != userID || p.invoker == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "not_linked", ErrorDescription: "Linkage not found"})
		return
	}

	msg, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	result, err := p.invoker.Post(r.Context(), providerUserID, msg)
	if err != nil {
		status, resp := postError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, PostResponse{ID: result.ID, Link: result.Link, Attempts: result.Attempts})
}

// PostAll handles POST /api/v1/posts, posting to every linkage of the caller
func (h *Handle) PostAll(w http.ResponseWriter, r *http.Request) {
	userID, err := localUserID(r)
	if err != nil {
		unauthorized(w, r, err)
		return
	}
	msg, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	names := make([]string, 0, len(h.providers))
	for name, p := range h.providers {
		if p.invoker != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	response := PostAllResponse{Results: []PostOutcome{}}
	for _, name := range names {
		p := h.providers[name]
		outcomes, err := p.invoker.PostForLocalUser(r.Context(), userID, msg)
		if err != nil {
			slog.Error("Failed to post for user", "user_id", userID, "error", err)
			writeError(w, r, err)
			return
		}
		for _, o := range outcomes {
			out := PostOutcome{Provider: o.Provider, ProviderUserID: o.ProviderUserID}
			if o.Result != nil {
				out.ID = o.Result.ID
				out.Link = o.Result.Link
				out.Attempts = o.Result.Attempts
			}
			if o.Err != nil {
				_, resp := postError(o.Err)
				out.Error = resp.Error
			}
			response.Results = append(response.Results, out)
		}
	}
	render.JSON(w, r, response)
}

func decodeMessage(w http.ResponseWriter, r *http.Request) (poster.Message, bool) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid_request", ErrorDescription: "Invalid request body"})
		return poster.Message{}, false
	}
	if strings.TrimSpace(req.Image) == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid_request", ErrorDescription: "Image is required"})
		return poster.Message{}, false
	}
	return poster.Message{Title: req.Title, Description: req.Description, Image: req.Image}, true
}

// postError maps a posting failure to a status and a response that leaks no provider detail.
// API_CALL_FAILED is told apart by its reason; everything else follows its error code.
func postError(err error) (int, ErrorResponse) {
	reason, _ := apperrors.GetAPICallReason(err)
	switch reason {
	case apperrors.ReasonUnlinked:
		return http.StatusNotFound, ErrorResponse{Error: "not_linked", ErrorDescription: "Linkage not found"}
	case apperrors.ReasonUnauthorized:
		return http.StatusConflict, ErrorResponse{Error: "relink_required", ErrorDescription: "The provider rejected the stored credentials, connect the account again"}
	case apperrors.ReasonRejected:
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "rejected", ErrorDescription: "The provider rejected the request"}
	case apperrors.ReasonTransientExhausted:
		return http.StatusBadGateway, ErrorResponse{Error: "provider_unavailable", ErrorDescription: "The provider is unavailable, try again later"}
	}
	return errorResponse(err)
}

// errorResponse maps an error to the status of its code. Unstructured errors are internal.
func errorResponse(err error) (int, ErrorResponse) {
	code := apperrors.GetCode(err)
	status := apperrors.MapErrorCodeToHTTPStatus(code)
	switch {
	case code == apperrors.ErrCodeInvalidInput:
		return status, ErrorResponse{Error: "invalid_request", ErrorDescription: "Invalid request"}
	case code == apperrors.ErrCodeNotFound:
		return status, ErrorResponse{Error: "not_found"}
	case status >= http.StatusInternalServerError:
		slog.Error("Unexpected error", "code", code, "error", err)
		return status, ErrorResponse{Error: "internal_error"}
	}
	return status, ErrorResponse{Error: strings.ToLower(string(code))}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorResponse(err)
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// localUserID reads the local user id from the sub claim of the verified JWT
func localUserID(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, errors.New("sub not found in JWT claims")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, errors.New("invalid sub in JWT claims")
	}
	return id, nil
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("Rejected API request", "error", err)
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorResponse{Error: "unauthorized"})
}
