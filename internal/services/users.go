package services

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"finanze/internal/auth"
	"finanze/internal/core"
	"finanze/internal/log"
)

const maxNameLength = 50

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Registration is the sign-up form.
type Registration struct {
	Username      string
	Email         string
	Password      string
	Confirm       string
	FirstName     string
	LastName      string
	TermsAccepted bool
}

// UserService handles accounts and credentials.
type UserService struct {
	store    UserStore
	hasher   *auth.Hasher
	defaults []core.Category
}

// NewUserService seeds every new account with defaults.
func NewUserService(store UserStore, hasher *auth.Hasher, defaults []core.Category) *UserService {
	if hasher == nil {
		hasher = auth.NewHasher(auth.DefaultCost)
	}
	return &UserService{store: store, hasher: hasher, defaults: defaults}
}

// Register validates the form and creates the account with its default categories.
func (s *UserService) Register(ctx context.Context, reg Registration) (int64, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)

	if err := validateUsername(reg.Username); err != nil {
		return 0, err
	}
	if err := validateEmail(reg.Email); err != nil {
		return 0, err
	}
	if err := validateNames(reg.FirstName, reg.LastName); err != nil {
		return 0, err
	}
	if err := auth.ValidatePassword("password", reg.Password); err != nil {
		return 0, err
	}
	if reg.Password != reg.Confirm {
		return 0, core.NewValidationError("confirm_password", "passwords do not match")
	}
	if !reg.TermsAccepted {
		return 0, core.NewValidationError("terms", "you must accept the terms and conditions")
	}
	return s.create(ctx, reg, false)
}

// CreateAdmin creates an administrator account. Terms and confirmation are not asked.
func (s *UserService) CreateAdmin(ctx context.Context, username, email, password string) (int64, error) {
	reg := Registration{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Password: password}
	if err := validateUsername(reg.Username); err != nil {
		return 0, err
	}
	if err := validateEmail(reg.Email); err != nil {
		return 0, err
	}
	if err := auth.ValidatePassword("password", reg.Password); err != nil {
		return 0, err
	}
	return s.create(ctx, reg, true)
}

func (s *UserService) create(ctx context.Context, reg Registration, admin bool) (int64, error) {
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return 0, err
	}
	id, err := s.store.CreateUser(ctx, core.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		IsAdmin:      admin,
	}, s.defaults)
	if err != nil {
		return 0, err
	}
	log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "User registered",
		log.FieldUserID, id, log.FieldOperation, log.OpRegister, "admin", admin)
	return id, nil
}

// Authenticate resolves login (username or email) and checks the password.
// Unknown users and wrong passwords yield the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (core.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return core.User{}, core.ErrInvalidCredentials
	}
	u, err := s.store.FindUserByLogin(ctx, login)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if err := s.hasher.Verify(u.PasswordHash, password); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, userID int64) (core.User, error) {
	return s.store.GetUser(ctx, userID)
}

// UpdateProfile changes email and names.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, email, firstName, lastName string) error {
	u := core.User{
		ID:        userID,
		Email:     strings.TrimSpace(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	}
	if err := validateEmail(u.Email); err != nil {
		return err
	}
	if err := validateNames(u.FirstName, u.LastName); err != nil {
		return err
	}
	return s.store.UpdateProfile(ctx, u)
}

// ChangePassword replaces the password after verifying the current one.
// Other sessions of the user are ended; keepSession survives.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next, confirm, keepSession string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Verify(u.PasswordHash, current); err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			return core.NewValidationError("current_password", "current password is incorrect")
		}
		return err
	}
	if err := auth.ValidatePassword("new_password", next); err != nil {
		return err
	}
	if next != confirm {
		return core.NewValidationError("confirm_password", "passwords do not match")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.store.DeleteUserSessions(ctx, userID, keepSession); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Failed to end other sessions",
			log.FieldUserID, userID, log.FieldError, err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "Password changed", log.FieldUserID, userID)
	return nil
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return core.NewValidationError("username", "please enter a username")
	case len(username) > maxNameLength:
		return core.NewValidationError("username", "username must be at most 50 characters")
	case !usernamePattern.MatchString(username):
		return core.NewValidationError("username", "username can only contain letters, numbers, and underscores")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return core.NewValidationError("email", "please enter an email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return core.NewValidationError("email", "please enter a valid email address")
	}
	return nil
}

func validateNames(first, last string) error {
	if len([]rune(first)) > maxNameLength {
		return core.NewValidationError("first_name", "first name must be at most 50 characters")
	}
	if len([]rune(last)) > maxNameLength {
		return core.NewValidationError("last_name", "last name must be at most 50 characters")
	}
	return nil
}
