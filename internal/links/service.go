package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/marius4lui/toolbox-links/hashgen"
	"github.com/marius4lui/toolbox-links/internal/auth"
	"github.com/marius4lui/toolbox-links/internal/errx"
	"github.com/marius4lui/toolbox-links/internal/quota"
)

const (
	MaxURLLength    = 2048
	MaxHashAttempts = 5
)

// ErrLinkExpired marks a link that exists but is inactive or past its expiry.
var ErrLinkExpired = errors.New("link is no longer active")

// ErrAllocationExhausted marks a creation that collided on every hash attempt.
// At 10 random base64url characters repeated collisions indicate a store
// problem, not bad luck, so it is surfaced as an internal failure.
var ErrAllocationExhausted = errors.New("could not allocate unique hash after retries")

// QuotaError carries the remaining cooldown for a denied guest creation.
type QuotaError struct {
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("guest creation limit reached, retry in %d minute(s)",
		quota.RetryAfterMinutes(e.RetryAfter))
}

// Tracker receives click events for resolved links.
type Tracker interface {
	Track(hash string)
}

// CreateRequest represents the parameters for creating a new link.
type CreateRequest struct {
	TargetURL string
	User      *auth.User // nil for guest creation
	ClientIP  string     // quota key for guest creation
}

// Service defines the short-link lifecycle operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (Link, error)
	ListForOwner(ctx context.Context, user auth.User) ([]Link, error)
	Update(ctx context.Context, hash, targetURL string, user auth.User) (Link, error)
	Delete(ctx context.Context, hash string, user auth.User) error
	Restore(ctx context.Context, hash string, user auth.User) (Link, error)
	Resolve(ctx context.Context, hash string) (string, error)
}

// service implements the Service interface.
type service struct {
	store   Store
	hashes  hashgen.Generator
	guard   *quota.Guard
	tracker Tracker
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	HashGenerator hashgen.Generator
	Guard         *quota.Guard
	Tracker       Tracker
	Logger        *slog.Logger
	Now           func() time.Time // test hook, defaults to time.Now
}

// NewService creates a new service instance.
func NewService(store Store, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	gen := config.HashGenerator
	if gen == nil {
		gen = hashgen.NewBase64URL()
	}

	guard := config.Guard
	if guard == nil {
		guard = quota.NewGuard(quota.DefaultCooldown)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &service{
		store:   store,
		hashes:  gen,
		guard:   guard,
		tracker: config.Tracker,
		logger:  logger,
		now:     now,
	}
}

// Create validates the target URL, enforces the guest quota, allocates a
// unique hash and persists the link with a fresh expiry window.
func (s *service) Create(ctx context.Context, req CreateRequest) (Link, error) {
	const op = "links.service.Create"

	if err := validateURL(req.TargetURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	isGuest := req.User == nil
	if isGuest {
		ok, wait := s.guard.Reserve(req.ClientIP)
		if !ok {
			return Link{}, errx.E(op, errx.RateLimited, &QuotaError{RetryAfter: wait})
		}
	}

	created, err := s.allocate(ctx, req)
	if err != nil {
		// A failed creation must not burn the guest's hourly slot.
		if isGuest {
			s.guard.Release(req.ClientIP)
		}
		return Link{}, err
	}

	return created, nil
}

// allocate runs the generate-insert loop: a fresh random hash each attempt,
// retried only on hash collision, bounded by MaxHashAttempts.
func (s *service) allocate(ctx context.Context, req CreateRequest) (Link, error) {
	const op = "links.service.Create"

	now := s.now()
	link := Link{
		TargetURL: req.TargetURL,
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
	if req.User != nil {
		uid := req.User.ID
		link.UserID = &uid
	}

	for range MaxHashAttempts {
		hash, err := s.hashes.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}
		link.Hash = hash

		created, err := s.store.Create(ctx, link)
		if err == nil {
			return created, nil
		}

		// Retry on collision, fail on other errors.
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	s.logger.Error("hash allocation exhausted",
		"attempts", MaxHashAttempts,
		"target_url", req.TargetURL,
	)
	return Link{}, errx.E(op, errx.Internal, ErrAllocationExhausted)
}

// ListForOwner returns the user's links, newest first.
func (s *service) ListForOwner(ctx context.Context, user auth.User) ([]Link, error) {
	const op = "links.service.ListForOwner"

	result, err := s.store.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return result, nil
}

// Update replaces the target URL of an owned link. Expiry and active state
// are left untouched.
func (s *service) Update(ctx context.Context, hash, targetURL string, user auth.User) (Link, error) {
	const op = "links.service.Update"

	if err := validateURL(targetURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	if err := s.authorize(ctx, op, hash, user); err != nil {
		return Link{}, err
	}

	updated, err := s.store.UpdateTarget(ctx, hash, targetURL)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return updated, nil
}

// Delete permanently removes an owned link.
func (s *service) Delete(ctx context.Context, hash string, user auth.User) error {
	const op = "links.service.Delete"

	if err := s.authorize(ctx, op, hash, user); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, hash); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

// Restore re-activates an owned link and re-arms the full expiry window,
// regardless of whether it was deactivated, expired, or still active.
func (s *service) Restore(ctx context.Context, hash string, user auth.User) (Link, error) {
	const op = "links.service.Restore"

	if err := s.authorize(ctx, op, hash, user); err != nil {
		return Link{}, err
	}

	restored, err := s.store.Restore(ctx, hash, s.now().Add(TTL))
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return restored, nil
}

// Resolve maps a hash to its redirect target. A missing record is NotFound;
// an inactive or expired one is Gone. A successful resolution enqueues a
// click increment that the response never waits on.
func (s *service) Resolve(ctx context.Context, hash string) (string, error) {
	const op = "links.service.Resolve"

	if hash == "" {
		return "", errx.E(op, errx.Invalid, errors.New("hash cannot be empty"))
	}

	link, err := s.store.GetByHash(ctx, hash)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}

	if !link.UsableAt(s.now()) {
		return "", errx.E(op, errx.Gone, ErrLinkExpired)
	}

	if s.tracker != nil {
		s.tracker.Track(hash)
	}

	return link.TargetURL, nil
}

// authorize loads the link and checks ownership. The existence check comes
// first: an unknown hash reports NotFound, a known hash owned by someone
// else (or by nobody, for guest links) reports Forbidden.
func (s *service) authorize(ctx context.Context, op, hash string, user auth.User) error {
	link, err := s.store.GetByHash(ctx, hash)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if !link.OwnedBy(user.ID) {
		return errx.E(op, errx.Forbidden, errors.New("link is not owned by the requesting user"))
	}
	return nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url is required")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}
