package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/ids"
	"github.com/Togather-Foundation/serendipity/internal/domain/validate"
	"github.com/Togather-Foundation/serendipity/internal/sanitize"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	// maxPasswordBytes is bcrypt's input limit. The validator tag counts runes.
	maxPasswordBytes = 72

	maxBioLength    = 1000
	maxInterests    = 50
	maxInterestSize = 100
)

// PasswordHasher is satisfied by auth.PasswordHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	CompareDummy(password string)
}

// SignupInput is the registration payload.
type SignupInput struct {
	FirstName  string   `json:"first_name" validate:"required,max=100"`
	LastName   string   `json:"last_name" validate:"required,max=100"`
	Email      string   `json:"email" validate:"required,email,max=254"`
	Password   string   `json:"password" validate:"required,min=6,max=72"`
	Gender     string   `json:"gender" validate:"max=50"`
	School     string   `json:"school" validate:"max=200"`
	GradeLevel string   `json:"grade_level" validate:"max=50"`
	Interests  []string `json:"interests" validate:"max=50,dive,max=100"`
}

// Service handles account registration, login and profile updates.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		validate: validate.New(),
		now:      time.Now,
		logger:   logger.With().Str("component", "users").Logger(),
	}
}

// Signup validates and stores a new account. A concurrent signup with the
// same email loses to the store's unique index and gets ErrEmailTaken.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	in.FirstName = sanitize.Text(in.FirstName)
	in.LastName = sanitize.Text(in.LastName)
	in.Email = NormalizeEmail(in.Email)
	in.Gender = sanitize.Text(in.Gender)
	in.School = sanitize.Text(in.School)
	in.GradeLevel = sanitize.Text(in.GradeLevel)
	in.Interests = sanitize.Labels(in.Interests)

	if err := validate.Struct(s.validate, in); err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	user := &User{
		ID:           id,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		School:       in.School,
		GradeLevel:   in.GradeLevel,
		Gender:       in.Gender,
		Interests:    in.Interests,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user signed up")
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password both
// yield ErrInvalidCredentials after a bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.hasher.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.CompareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.logger.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	id, err := ids.Normalize(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateBio replaces the bio. A nil bio means the field was absent.
func (s *Service) UpdateBio(ctx context.Context, userID string, bio *string) (*User, error) {
	if bio == nil {
		return nil, ValidationError{Field: "bio", Message: "is required"}
	}
	clean := sanitize.Text(*bio)
	if len([]rune(clean)) > maxBioLength {
		return nil, ValidationError{Field: "bio", Message: fmt.Sprintf("must be at most %d characters", maxBioLength)}
	}
	return s.repo.UpdateBio(ctx, userID, clean)
}

// UpdateInterests replaces the interest set. A nil slice means the field was
// absent; an empty slice clears it.
func (s *Service) UpdateInterests(ctx context.Context, userID string, interests []string) (*User, error) {
	if interests == nil {
		return nil, ValidationError{Field: "interests", Message: "is required"}
	}
	clean := sanitize.Labels(interests)
	if len(clean) > maxInterests {
		return nil, ValidationError{Field: "interests", Message: fmt.Sprintf("must have at most %d entries", maxInterests)}
	}
	for _, interest := range clean {
		if len([]rune(interest)) > maxInterestSize {
			return nil, ValidationError{Field: "interests", Message: fmt.Sprintf("entries must be at most %d characters", maxInterestSize)}
		}
	}
	return s.repo.UpdateInterests(ctx, userID, clean)
}
