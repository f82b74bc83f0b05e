package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// dummyPasswordHash keeps Authenticate's cost constant for unknown emails.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var (
	// ErrMissingCredentials indicates an empty email or password.
	ErrMissingCredentials = errors.New("users: email and password are required")
	// ErrInvalidEmail indicates the email is not a plain address.
	ErrInvalidEmail = errors.New("users: invalid email")
	// ErrPasswordTooShort indicates the password is shorter than MinPasswordLength.
	ErrPasswordTooShort = errors.New("users: password too short")
	// ErrEmailTaken indicates another account already uses the normalized email.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("users: invalid email or password")
	// ErrNotFound indicates no account matches the identifier.
	ErrNotFound = errors.New("users: user not found")
)

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database     *gorm.DB
	Clock        func() time.Time
	PasswordCost int
	Logger       *zap.Logger
}

// Service registers and authenticates accounts.
type Service struct {
	db           *gorm.DB
	now          func() time.Time
	passwordCost int
	logger       *zap.Logger
}

// NewService constructs the account service. The schema must already be migrated.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	cost := cfg.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("users: password cost %d out of range", cost)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:           cfg.Database,
		now:          clock,
		passwordCost: cost,
		logger:       logger,
	}, nil
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || password == "" {
		return User{}, ErrMissingCredentials
	}
	if address, err := mail.ParseAddress(normalized); err != nil || address.Address != normalized {
		return User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return User{}, fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooShort, MinPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	identifier, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("users: generate id: %w", err)
	}

	now := s.now().UTC()
	user := User{
		ID:           identifier.String(),
		Email:        normalized,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		s.logger.Error("user registration failed", zap.String("email", normalized), zap.Error(err))
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies the password for the account registered under email.
// Unknown emails still pay the bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || password == "" {
		return User{}, ErrMissingCredentials
	}

	user, lookupErr := s.FindByEmail(ctx, normalized)
	passwordHash := dummyPasswordHash
	if lookupErr == nil {
		passwordHash = user.PasswordHash
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return User{}, lookupErr
	}
	if lookupErr != nil || compareErr != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// FindByEmail looks up an account by normalized email.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key")
}
