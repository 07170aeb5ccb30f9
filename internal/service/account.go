package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rs/xid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sakif/price-compare/internal/apperror"
	"github.com/sakif/price-compare/internal/auth"
	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/state"
)

// userIDPrefix marks account ids in the snapshot ("user_cu3k9...").
const userIDPrefix = "user_"

// msgInvalidCredentials is the single message for every login failure.
const msgInvalidCredentials = "Invalid credentials"

// AuthResult is returned by Signup and Login.
// Token is empty when session tokens are disabled.
type AuthResult struct {
	User  model.PublicUser
	Token string
}

// AccountService manages credential-based accounts.
type AccountService struct {
	store     *state.Store
	passwords *auth.PasswordService
	tokens    *auth.TokenService // nil disables session tokens
	logger    *slog.Logger
	newID     func() string
}

// NewAccountService creates an AccountService. tokens may be nil.
func NewAccountService(store *state.Store, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:     store,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
		newID:     func() string { return userIDPrefix + xid.New().String() },
	}
}

// normalizeEmail trims and lower-cases an email so "Ada@Example.COM " and
// "ada@example.com" are the same account. Only case differs between matches:
// "Straße@x.com" is stored as "straße@x.com", not folded to "strasse@x.com".
//
// A cases.Caser keeps state between calls, so a fresh one is made each time
// instead of sharing one across goroutines.
func normalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// findUserByEmail returns the index of the user with the normalized email, or -1.
func findUserByEmail(users []model.User, email string) int {
	for i := range users {
		if normalizeEmail(users[i].Email) == email {
			return i
		}
	}
	return -1
}

func findUserByID(users []model.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

// Signup creates an account and an empty cart for it.
//
// ORDER OF WORK:
//  1. validate, and reject a taken email early (cheap, under a read)
//  2. hash the password OUTSIDE the state lock (bcrypt takes ~250ms)
//  3. re-check the email inside the update, since another signup may have
//     taken it while we were hashing, then insert
func (s *AccountService) Signup(ctx context.Context, email, password, name string) (AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, apperror.ValidationFailed("email", "Missing email or password")
	}
	if len(password) > auth.MaxPasswordBytes {
		return AuthResult{}, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	var taken bool
	s.store.Read(func(snap *model.Snapshot) {
		taken = findUserByEmail(snap.Users, email) >= 0
	})
	if taken {
		return AuthResult{}, errEmailTaken()
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return AuthResult{}, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return AuthResult{}, err
	}

	user := model.User{
		ID:           s.newID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}

	err = s.store.Update(ctx, func(snap *model.Snapshot) error {
		if findUserByEmail(snap.Users, email) >= 0 {
			return errEmailTaken()
		}
		snap.Users = append(snap.Users, user)
		snap.Carts[user.ID] = model.NewCart()
		return nil
	})
	if err != nil {
		return AuthResult{}, err
	}

	s.logger.Info("user signed up", slog.String("user_id", user.ID))
	return s.authResult(user)
}

// Login checks credentials.
//
// Unknown email and wrong password return the same Unauthorized error, and an
// unknown email still costs one bcrypt comparison, so neither the response nor
// its timing tells a caller which emails have accounts.
func (s *AccountService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, apperror.ValidationFailed("email", "Missing email or password")
	}

	var (
		user  model.User
		found bool
	)
	s.store.Read(func(snap *model.Snapshot) {
		if i := findUserByEmail(snap.Users, email); i >= 0 {
			user, found = snap.Users[i], true
		}
	})

	if !found {
		_ = s.passwords.VerifyDummy(password)
		return AuthResult{}, apperror.Unauthorized(msgInvalidCredentials)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// A stored hash we cannot decode; the caller still just sees bad credentials.
			s.logger.Error("unreadable password hash",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return AuthResult{}, apperror.Unauthorized(msgInvalidCredentials)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return s.authResult(user)
}

// Profile returns the public view of a user.
func (s *AccountService) Profile(_ context.Context, id string) (model.PublicUser, error) {
	var (
		user  model.PublicUser
		found bool
	)
	s.store.Read(func(snap *model.Snapshot) {
		if i := findUserByID(snap.Users, id); i >= 0 {
			user, found = snap.Users[i].Public(), true
		}
	})
	if !found {
		return model.PublicUser{}, apperror.NotFound("user", id)
	}
	return user, nil
}

// UpdateProfilePicture replaces a user's picture.
//
// This is the one account write whose save failure reaches the caller: the
// picture is a deliberate user action, so a failed write is a 500, not a
// silent success. The in-memory change is kept either way.
func (s *AccountService) UpdateProfilePicture(ctx context.Context, id, picture string) (model.PublicUser, error) {
	if picture == "" {
		return model.PublicUser{}, apperror.ValidationFailed("profilePic", "profilePic is required in body")
	}

	var updated model.PublicUser
	err := s.store.UpdateDurable(ctx, func(snap *model.Snapshot) error {
		i := findUserByID(snap.Users, id)
		if i < 0 {
			return apperror.NotFound("user", id)
		}
		snap.Users[i].ProfilePic = picture
		updated = snap.Users[i].Public()
		return nil
	})
	if err != nil {
		return model.PublicUser{}, err
	}

	s.logger.Info("profile picture updated", slog.String("user_id", id))
	return updated, nil
}

// TokensEnabled reports whether Signup and Login issue session tokens.
func (s *AccountService) TokensEnabled() bool {
	return s.tokens != nil
}

func (s *AccountService) authResult(user model.User) (AuthResult, error) {
	res := AuthResult{User: user.Public()}
	if s.tokens == nil {
		return res, nil
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", user.ID), slog.String("error", err.Error()))
		return AuthResult{}, err
	}
	res.Token = token
	return res, nil
}

func errEmailTaken() *apperror.AppError {
	return &apperror.AppError{
		Err:     apperror.ErrConflict,
		Message: "Email already registered",
		Field:   "email",
	}
}
