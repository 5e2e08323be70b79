package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/users"
	"github.com/angelmondragon/cinepass/pkg/auth/session"
	"github.com/angelmondragon/cinepass/pkg/db"
	"github.com/angelmondragon/cinepass/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/angelmondragon/cinepass/pkg/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	birthDateLayout           = "2006-01-02"
)

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, changes users.ProfileChanges) (*models.User, error)
	AddFavorite(ctx context.Context, userID uuid.UUID, movieID int) (bool, error)
	RemoveFavorite(ctx context.Context, userID uuid.UUID, movieID int) error
	IsFavorite(ctx context.Context, userID uuid.UUID, movieID int) (bool, error)
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]int, error)
}

type sessionManager interface {
	Bind(ctx context.Context, sessionID string, rec session.Record) (*session.Record, error)
	Active(ctx context.Context, sessionID string) (*session.Record, error)
	Rename(ctx context.Context, sessionID, name string) error
	Revoke(ctx context.Context, sessionID string) error
}

type movieLookup interface {
	Lookup(movieID int) (catalog.Movie, bool)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Hasher         passwordHasher
	Movies         movieLookup
	Logger         *logger.Logger
}

// Service registers customers and binds their logins to storefront sessions.
type Service struct {
	users    userRepository
	sessions sessionManager
	hasher   passwordHasher
	movies   movieLookup
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Movies == nil {
		return nil, fmt.Errorf("movie catalog is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		users:    params.UserRepo,
		sessions: params.SessionManager,
		hasher:   params.Hasher,
		movies:   params.Movies,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Register creates a customer account. It does not log the customer in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	email := users.NormalizeEmail(req.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return users.FromModel(user), nil
}

// Login checks the credentials and binds the user to sessionID. Unknown
// addresses and wrong passwords fail alike with NOT_AUTHENTICATED.
func (s *Service) Login(ctx context.Context, sessionID string, req LoginRequest) (*users.UserDTO, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	if _, err := s.sessions.Bind(ctx, sessionID, session.Record{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind session")
	}

	ctx = s.logg.WithSessionID(s.logg.WithUserID(ctx, user.ID.String()), sessionID)
	s.logg.Info(ctx, "user logged in")
	return users.FromModel(user), nil
}

// Logout ends the login bound to sessionID. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Me returns the user logged in on sessionID.
func (s *Service) Me(ctx context.Context, sessionID string) (*users.UserDTO, error) {
	user, err := s.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

// ChangePassword replaces the password of the user logged in on sessionID
// after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, sessionID string, req ChangePasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	user, err := s.current(ctx, sessionID)
	if err != nil {
		return err
	}
	valid, err := s.hasher.Verify(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, invalidCredentialsMessage)
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

// UpdateProfile changes the profile of the user logged in on sessionID. A new
// name is also carried into the live login so checkout prefills it.
func (s *Service) UpdateProfile(ctx context.Context, sessionID string, req UpdateProfileRequest) (*users.UserDTO, error) {
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name == "" {
			req.Name = nil
		} else {
			req.Name = &name
		}
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.BirthDate != nil && strings.TrimSpace(*req.BirthDate) != "" {
		if _, err := time.Parse(birthDateLayout, strings.TrimSpace(*req.BirthDate)); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"birth_date": "must be a date as YYYY-MM-DD"})
		}
	}

	user, err := s.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	changes := users.ProfileChanges{Name: req.Name, Phone: req.Phone, BirthDate: req.BirthDate}
	if prefs := req.Preferences; prefs != nil {
		changes.Genres = prefs.Genres
		changes.Notifications = prefs.Notifications
		changes.Newsletter = prefs.Newsletter
	}
	updated, err := s.users.UpdateProfile(ctx, user.ID, changes)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "not logged in")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}

	if req.Name != nil && updated.Name != user.Name {
		if err := s.sessions.Rename(ctx, sessionID, updated.Name); err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "not logged in")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh session")
		}
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "profile updated")
	return users.FromModel(updated), nil
}

// Favorites lists the favorite movie ids of the user logged in on sessionID.
func (s *Service) Favorites(ctx context.Context, sessionID string) ([]int, error) {
	user, err := s.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ids, err := s.users.ListFavorites(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	return ids, nil
}

// AddFavorite marks a catalog movie as a favorite. It reports false when the
// movie already was one, and fails with NOT_FOUND for movies outside the catalog.
func (s *Service) AddFavorite(ctx context.Context, sessionID string, movieID int) (bool, error) {
	user, err := s.current(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if _, ok := s.movies.Lookup(movieID); !ok {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found").
			WithDetails(map[string]any{"movie_id": movieID})
	}
	added, err := s.users.AddFavorite(ctx, user.ID, movieID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return added, nil
}

// RemoveFavorite unmarks movieID; it is a no-op when it was not a favorite.
func (s *Service) RemoveFavorite(ctx context.Context, sessionID string, movieID int) error {
	user, err := s.current(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.users.RemoveFavorite(ctx, user.ID, movieID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}

// IsFavorite reports whether movieID is a favorite. Without a login nothing
// is a favorite.
func (s *Service) IsFavorite(ctx context.Context, sessionID string, movieID int) (*FavoriteStatus, error) {
	status := &FavoriteStatus{MovieID: movieID}
	user, err := s.current(ctx, sessionID)
	if pkgerrors.HasCode(err, pkgerrors.CodeNotAuthenticated) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	status.Favorite, err = s.users.IsFavorite(ctx, user.ID, movieID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check favorite")
	}
	return status, nil
}

// Provider returns the AuthProvider view of sessionID used by the cart.
func (s *Service) Provider(sessionID string) *Provider {
	return &Provider{sessionID: sessionID, sessions: s.sessions}
}

func (s *Service) current(ctx context.Context, sessionID string) (*models.User, error) {
	rec, err := s.sessions.Active(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "not logged in")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "not logged in")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := users.NormalizeEmail(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, invalidCredentialsMessage)
	}
	return user, nil
}
