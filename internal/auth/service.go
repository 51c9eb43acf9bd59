package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/database/users"
	"github.com/mrlokans/learncard/internal/entities"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrAuthDisabled     = errors.New("accounts are disabled in this deployment")
)

const (
	defaultMaxFailedLogins = 5
	defaultLockoutDuration = 30 * time.Minute
)

// Service handles registration and credential checks.
type Service struct {
	users  *users.Repository
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(repo *users.Repository, cfg config.Auth) *Service {
	return &Service{
		users:  repo,
		config: cfg,
		now:    time.Now,
	}
}

// Register creates an account with password authentication.
func (s *Service) Register(email, password string) (*entities.User, error) {
	if !s.IsAuthEnabled() {
		return nil, ErrAuthDisabled
	}

	email = users.NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	// RFC 5321 caps addresses at 254 characters
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	_, err := s.users.GetUserByEmail(email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost, s.config.MinPasswordLength)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate validates credentials and returns the user.
// Accounts lock after too many consecutive failures.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	if !s.IsAuthEnabled() {
		return nil, ErrAuthDisabled
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user, now)
		return nil, err
	}

	if err := s.users.RecordLoginSuccess(user, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	return user, nil
}

func (s *Service) recordFailedLogin(user *entities.User, now time.Time) {
	maxFailures := s.config.MaxLoginAttempts
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailedLogins
	}

	var lockedUntil *time.Time
	if user.FailedLoginCount+1 >= maxFailures {
		lockout := s.config.LockoutDuration
		if lockout <= 0 {
			lockout = defaultLockoutDuration
		}
		until := now.Add(lockout)
		lockedUntil = &until
	}

	if err := s.users.RecordLoginFailure(user, lockedUntil); err != nil {
		log.Printf("Failed to record failed login for user %d: %v", user.ID, err)
	}
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetUserCount returns the number of registered users.
func (s *Service) GetUserCount() (int64, error) {
	return s.users.Count()
}

// IsAuthEnabled returns true if accounts are available.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode != config.AuthModeNone
}

// GetAuthMode returns the current authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
