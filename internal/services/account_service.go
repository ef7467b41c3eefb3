package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/repository"
)

// ErrIncorrectPassword is returned when a signed-in user confirms an
// action with the wrong password.
var ErrIncorrectPassword = errors.New("password is incorrect")

// AccountService handles signup, login and profile maintenance.
type AccountService struct {
	users  repository.UserRepository
	tokens *auth.TokenIssuer
	logger *applog.Logger
	sl     *applog.StructuredLogger
}

func NewAccountService(users repository.UserRepository, tokens *auth.TokenIssuer, logger *applog.Logger) *AccountService {
	logger = logger.WithComponent(applog.ComponentAccount)
	return &AccountService{
		users:  users,
		tokens: tokens,
		logger: logger,
		sl:     applog.NewStructuredLogger(logger),
	}
}

// Signup creates a user and returns it with a fresh token.
// A taken email yields core.ErrDuplicate.
func (s *AccountService) Signup(ctx context.Context, email, password, name string) (core.User, string, error) {
	email = core.NormalizeEmail(email)
	if err := core.ValidateEmail(email); err != nil {
		return core.User{}, "", err
	}
	if err := core.ValidatePassword(password); err != nil {
		return core.User{}, "", err
	}
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return core.User{}, "", err
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, "", fmt.Errorf("signup %s: %w", email, core.ErrDuplicate)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, "", err
	}

	user, err := s.users.CreateUser(ctx, core.User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		return core.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return core.User{}, "", err
	}

	s.logger.InfoContext(ctx, "User signed up", applog.NewFields().WithOwner(user.ID).WithOperation(applog.OpCreate).ToSlice()...)
	return user, token, nil
}

// Login checks credentials. Unknown emails and wrong passwords both yield
// auth.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, "", auth.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.WarnContext(ctx, "Login rejected",
			applog.FieldOwnerID, user.ID,
			applog.FieldErrorType, applog.ErrorTypeAuth)
		return core.User{}, "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return core.User{}, "", err
	}
	return user, token, nil
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (core.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *AccountService) Rename(ctx context.Context, userID int64, name string) (core.User, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return core.User{}, err
	}
	user, err := s.users.UpdateUserName(ctx, userID, name)
	if err != nil {
		return core.User{}, fmt.Errorf("rename user: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the hash after confirming the current password.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := core.ValidatePassword(next); err != nil {
		return err
	}
	if err := s.confirmPassword(ctx, userID, current); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.InfoContext(ctx, "Password changed", applog.FieldOwnerID, userID)
	return nil
}

// DeleteAccount removes the user with all their expenses and budgets.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64, password string) error {
	if err := s.confirmPassword(ctx, userID, password); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		s.sl.LogError(ctx, "Failed to delete account", err, applog.ComponentAccount, applog.OpDelete,
			applog.NewFields().WithOwner(userID).WithErrorType(applog.ErrorTypeDatabase))
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "Account deleted", applog.FieldOwnerID, userID, applog.FieldOperation, applog.OpDelete)
	return nil
}

func (s *AccountService) confirmPassword(ctx context.Context, userID int64, password string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return ErrIncorrectPassword
		}
		return err
	}
	return nil
}
