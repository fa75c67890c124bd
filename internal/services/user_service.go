package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/notes-be/internal/auth"
	"github.com/isdelr/notes-be/internal/database"
	"github.com/isdelr/notes-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	IssueToken(user models.User) (string, time.Time, error)
	VerifyToken(ctx context.Context, token string) (models.User, error)
	GetProfile(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// userRecord is the stored form of a user. Unlike models.User it serializes
// the password hash.
type userRecord struct {
	ID           string    `json:"_id,omitempty"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (r userRecord) model() models.User {
	return models.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// dummyHash is compared against when no account matches, so failed logins
// take about as long whether or not the email exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// UserService provides business logic for user management.
type UserService struct {
	store  database.Gateway
	tokens *auth.TokenManager
	cost   int
}

// NewUserService creates a new UserService.
func NewUserService(store database.Gateway, tokens *auth.TokenManager) *UserService {
	return &UserService{store: store, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register creates a new user, hashing their password. Emails are not
// required to be unique.
func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	const op = "services.UserService.Register"

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: hash password: %w", op, err)
	}

	doc, err := database.Encode(userRecord{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	stored, err := s.store.Insert(ctx, database.Users, doc)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return decodeUser(op, stored)
}

// Login verifies a user's credentials. Every account registered under the
// email is tried, since duplicates are allowed.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, error) {
	const op = "services.UserService.Login"

	docs, err := s.store.FindMany(ctx, database.Users, database.Filter{"email": email})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(docs) == 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return models.User{}, ErrInvalidCredentials
	}

	for _, doc := range docs {
		user, err := decodeUser(op, doc)
		if err != nil {
			return models.User{}, err
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
			return user, nil
		}
	}
	return models.User{}, ErrInvalidCredentials
}

// IssueToken mints a signed session token for user.
func (s *UserService) IssueToken(user models.User) (string, time.Time, error) {
	return s.tokens.Generate(user.ID, user.Username)
}

// VerifyToken validates token and loads the user it was issued to.
func (s *UserService) VerifyToken(ctx context.Context, token string) (models.User, error) {
	const op = "services.UserService.VerifyToken"

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return models.User{}, fmt.Errorf("%w: user %s no longer exists", ErrInvalidToken, claims.UserID)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GetProfile retrieves the first user registered with email.
func (s *UserService) GetProfile(ctx context.Context, email string) (models.User, error) {
	const op = "services.UserService.GetProfile"

	doc, err := s.store.FindOne(ctx, database.Users, database.Filter{"email": email})
	if errors.Is(err, database.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return decodeUser(op, doc)
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	const op = "services.UserService.GetUserByID"

	doc, err := s.store.FindByID(ctx, database.Users, id)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrInvalidID) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return decodeUser(op, doc)
}

// ListUsers returns every registered user.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "services.UserService.ListUsers"

	docs, err := s.store.FindMany(ctx, database.Users, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		user, err := decodeUser(op, doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func decodeUser(op string, doc database.Document) (models.User, error) {
	var rec userRecord
	if err := database.Decode(doc, &rec); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec.model(), nil
}
