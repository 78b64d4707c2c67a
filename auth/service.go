// Package auth implements login, signup and logout over cookie sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autonomeal/apperr"
	"autonomeal/models"
	"autonomeal/utils"

	"go.uber.org/zap"
)

const (
	MsgLoginOK    = "Login successful"
	MsgSignupOK   = "Registration successful"
	MsgLogoutOK   = "Logged out successfully"
	msgUsernameIn = "Username already taken"
	msgEmailIn    = "Email already registered"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameInUse(ctx context.Context, username string) (bool, error)
	EmailInUse(ctx context.Context, email string) (bool, error)
}

// Mailer sends the welcome mail. A nil Mailer disables it.
type Mailer interface {
	SendWelcome(ctx context.Context, name, email string) error
}

type SignupInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Service struct {
	users     UserStore
	sessions  *SessionManager
	mailer    Mailer
	cost      int
	dummyHash string
	logger    *zap.Logger
}

// NewService wires the account flows. bcryptCost 0 means bcrypt.DefaultCost.
func NewService(users UserStore, sessions *SessionManager, mailer Mailer, bcryptCost int, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		mailer:    mailer,
		cost:      bcryptCost,
		dummyHash: utils.DummyPasswordHash(bcryptCost),
		logger:    logger,
	}
}

// Login authenticates sess. An already authenticated session is returned
// unchanged; on success the returned session replaces sess.
func (s *Service) Login(ctx context.Context, sess *models.Session, username, password string) (*models.Session, error) {
	if sess.Authenticated() {
		return sess, nil
	}

	username = utils.NormalizeIdentifier(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, apperr.BadRequest("Username and password are required")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, utils.ErrNotFound) {
		// keep the timing of unknown users in line with wrong passwords
		utils.CheckPasswordHash(password, s.dummyHash)
		return nil, apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("look up user: %w", err))
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	next, err := s.authenticate(ctx, sess, user.Username)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("username", user.Username))
	return next, nil
}

// Signup creates an account and authenticates sess as the new user.
func (s *Service) Signup(ctx context.Context, sess *models.Session, in SignupInput) (*models.Session, error) {
	if sess.Authenticated() {
		return sess, nil
	}

	username, err := utils.ValidateUsername(in.Username)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	email, err := utils.ValidateEmail(in.Email)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	password, err := utils.ValidatePassword(in.Password)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	taken, err := s.users.UsernameInUse(ctx, username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if taken {
		return nil, apperr.Conflict(msgUsernameIn)
	}
	taken, err = s.users.EmailInUse(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if taken {
		return nil, apperr.Conflict(msgEmailIn)
	}

	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
	}
	if _, err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, utils.ErrUsernameTaken):
			return nil, apperr.Conflict(msgUsernameIn)
		case errors.Is(err, utils.ErrEmailTaken):
			return nil, apperr.Conflict(msgEmailIn)
		}
		return nil, apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	next, err := s.authenticate(ctx, sess, username)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("username", username))

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Name, user.Email); err != nil {
			s.logger.Warn("welcome mail failed", zap.String("username", username), zap.Error(err))
		}
	}
	return next, nil
}

// Logout drops sess from the store. It never fails.
func (s *Service) Logout(ctx context.Context, sess *models.Session) {
	if sess == nil || sess.ID == "" {
		return
	}
	if err := s.sessions.End(ctx, sess); err != nil {
		s.logger.Warn("failed to delete session", zap.Error(err))
		return
	}
	if sess.Username != "" {
		s.logger.Info("user logged out", zap.String("username", sess.Username))
	}
}

// CheckAuth reports whether sess belongs to a logged in user.
func CheckAuth(sess *models.Session) (bool, string) {
	if !sess.Authenticated() {
		return false, ""
	}
	return true, sess.Username
}

// authenticate rotates the session token and binds it to username.
func (s *Service) authenticate(ctx context.Context, old *models.Session, username string) (*models.Session, error) {
	next, err := s.sessions.Rotate(ctx, old, username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return next, nil
}
