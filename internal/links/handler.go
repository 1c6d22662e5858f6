package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/marius4lui/toolbox-links/internal/auth"
	"github.com/marius4lui/toolbox-links/internal/errx"
	"github.com/marius4lui/toolbox-links/internal/httpx"
	"github.com/marius4lui/toolbox-links/internal/quota"
)

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL string `json:"url"`
}

// HTTPUpdateLinkRequest represents the JSON request body for updating a link.
type HTTPUpdateLinkRequest struct {
	URL string `json:"url"`
}

// CreateLinkResponse represents the JSON response for a created link.
type CreateLinkResponse struct {
	Success   bool   `json:"success"`
	Hash      string `json:"hash"`
	ShortURL  string `json:"shortUrl"`
	TargetURL string `json:"targetUrl"`
	ExpiresAt string `json:"expiresAt"`
	IsGuest   bool   `json:"isGuest"`
}

// LinkItem is a single entry in the owner listing.
type LinkItem struct {
	Hash      string `json:"hash"`
	ShortURL  string `json:"shortUrl"`
	TargetURL string `json:"targetUrl"`
	Clicks    int64  `json:"clicks"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

// ListLinksResponse represents the JSON response for the owner listing.
type ListLinksResponse struct {
	Success bool       `json:"success"`
	Links   []LinkItem `json:"links"`
}

// UpdateLinkResponse represents the JSON response for an updated link.
type UpdateLinkResponse struct {
	Success   bool   `json:"success"`
	Hash      string `json:"hash"`
	ShortURL  string `json:"shortUrl"`
	TargetURL string `json:"targetUrl"`
}

// DeleteLinkResponse represents the JSON response for a deleted link.
type DeleteLinkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RestoreLinkResponse represents the JSON response for a restored link.
type RestoreLinkResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Hash      string `json:"hash"`
	ShortURL  string `json:"shortUrl"`
	ExpiresAt string `json:"expiresAt"`
}

// quotaExceededResponse carries the remaining cooldown on a denied guest creation.
type quotaExceededResponse struct {
	Error             string `json:"error"`
	RetryAfterMinutes int    `json:"retryAfterMinutes"`
}

// Handler provides HTTP handlers for the link service.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // Base URL for constructing short links (e.g., "https://links.qhrd.online")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: cfg.BaseURL,
	}
}

func (h *Handler) shortURL(hash string) string {
	return fmt.Sprintf("%s/%s", h.baseURL, hash)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// CreateLink handles POST /api/create for both guests and authenticated users.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	var user *auth.User
	if u, ok := auth.UserFrom(ctx); ok {
		user = &u
	}

	link, err := h.service.Create(ctx, CreateRequest{
		TargetURL: req.URL,
		User:      user,
		ClientIP:  httpx.ClientIP(r),
	})
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link created",
		"hash", link.Hash,
		"is_guest", user == nil,
	)

	httpx.WriteJSON(w, http.StatusOK, CreateLinkResponse{
		Success:   true,
		Hash:      link.Hash,
		ShortURL:  h.shortURL(link.Hash),
		TargetURL: link.TargetURL,
		ExpiresAt: link.ExpiresAt.Format(time.RFC3339),
		IsGuest:   user == nil,
	})
}

// ListLinks handles GET /api/links for the authenticated owner.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	user, ok := auth.UserFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	result, err := h.service.ListForOwner(ctx, user)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	items := make([]LinkItem, 0, len(result))
	for _, link := range result {
		items = append(items, LinkItem{
			Hash:      link.Hash,
			ShortURL:  h.shortURL(link.Hash),
			TargetURL: link.TargetURL,
			Clicks:    link.Clicks,
			IsActive:  link.IsActive,
			CreatedAt: link.CreatedAt.Format(time.RFC3339),
			ExpiresAt: link.ExpiresAt.Format(time.RFC3339),
		})
	}

	logger.DebugContext(ctx, "links listed", "user_id", user.ID, "count", len(items))

	httpx.WriteJSON(w, http.StatusOK, ListLinksResponse{
		Success: true,
		Links:   items,
	})
}

// UpdateLink handles PUT /api/links/{hash}.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	user, ok := auth.UserFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPUpdateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	link, err := h.service.Update(ctx, r.PathValue("hash"), req.URL, user)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link updated", "hash", link.Hash, "user_id", user.ID)

	httpx.WriteJSON(w, http.StatusOK, UpdateLinkResponse{
		Success:   true,
		Hash:      link.Hash,
		ShortURL:  h.shortURL(link.Hash),
		TargetURL: link.TargetURL,
	})
}

// DeleteLink handles DELETE /api/links/{hash}.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	user, ok := auth.UserFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	hash := r.PathValue("hash")
	if err := h.service.Delete(ctx, hash, user); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link deleted", "hash", hash, "user_id", user.ID)

	httpx.WriteJSON(w, http.StatusOK, DeleteLinkResponse{
		Success: true,
		Message: "Link deleted",
	})
}

// RestoreLink handles POST /api/links/{hash}/restore.
func (h *Handler) RestoreLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	user, ok := auth.UserFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	link, err := h.service.Restore(ctx, r.PathValue("hash"), user)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link restored",
		"hash", link.Hash,
		"user_id", user.ID,
		"expires_at", link.ExpiresAt,
	)

	httpx.WriteJSON(w, http.StatusOK, RestoreLinkResponse{
		Success:   true,
		Message:   "Link restored",
		Hash:      link.Hash,
		ShortURL:  h.shortURL(link.Hash),
		ExpiresAt: link.ExpiresAt.Format(time.RFC3339),
	})
}

// Redirect handles GET /{hash}. Its consumer is a browser, so the terminal
// outcomes render themed HTML pages instead of JSON.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	hash := r.PathValue("hash")

	target, err := h.service.Resolve(ctx, hash)
	if err != nil {
		switch errx.KindOf(err) {
		case errx.NotFound, errx.Invalid:
			logger.WarnContext(ctx, "redirect hash not found", "hash", hash)
			writeHTML(w, http.StatusNotFound, notFoundPage)

		case errx.Gone:
			logger.InfoContext(ctx, "redirect link expired", "hash", hash)
			writeHTML(w, http.StatusGone, expiredPage)

		default:
			logger.ErrorContext(ctx, "unexpected error resolving link",
				"hash", hash,
				"error", err.Error(),
			)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	logger.InfoContext(ctx, "redirecting",
		"hash", hash,
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	http.Redirect(w, r, target, http.StatusFound)
}

// writeServiceError maps service errors onto the API error responses.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", unwrapped(err), nil)

	case errx.RateLimited:
		var qe *QuotaError
		minutes := 0
		if errors.As(err, &qe) {
			minutes = quota.RetryAfterMinutes(qe.RetryAfter)
		}
		h.logger.WarnContext(ctx, "guest quota exceeded", logAttrs...)
		httpx.WriteJSON(w, http.StatusTooManyRequests, quotaExceededResponse{
			Error:             "Guests can only create 1 link per hour. Please login for unlimited links.",
			RetryAfterMinutes: minutes,
		})

	case errx.NotFound:
		h.logger.WarnContext(ctx, "link not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Link not found", nil)

	case errx.Forbidden:
		h.logger.WarnContext(ctx, "link ownership check failed", logAttrs...)
		httpx.WriteError(w, http.StatusForbidden, "forbidden",
			"Not authorized to modify this link", nil)

	default:
		h.logger.ErrorContext(ctx, "link operation failed", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to process this request at this time. Please try again.", nil)
	}
}

// unwrapped returns the innermost message of an errx error for user display.
func unwrapped(err error) string {
	var e *errx.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
