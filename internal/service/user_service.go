package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 12 * time.Hour

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" validate:"notblank,max=100"`
	FullName string `json:"full_name" validate:"max=200"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin manager cashier"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *UserResponse `json:"user"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Claims is the JWT payload. Subject carries the user id.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Actor turns verified claims into the operator recorded on writes.
func (c *Claims) Actor() Actor {
	actor := Actor{Username: c.Username, Role: c.Role}
	if id, err := strconv.ParseUint(c.Subject, 10, 64); err == nil {
		uid := uint(id)
		actor.UserID = &uid
	}
	return actor
}

type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	ParseToken(token string) (*Claims, error)
	GetUser(ctx context.Context, id uint) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}

type userService struct {
	repo   repository.UserRepository
	secret []byte
	now    func() time.Time
	log    *logrus.Logger
}

func NewUserService(repo repository.UserRepository, jwtSecret string, log *logrus.Logger) UserService {
	return &userService{repo: repo, secret: []byte(jwtSecret), now: time.Now, log: log}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &PersistenceError{Op: "hash password", Err: err}
	}

	user := &model.User{
		Username: strings.TrimSpace(req.Username),
		FullName: strings.TrimSpace(req.FullName),
		Password: string(hashed),
		Role:     req.Role,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &ConflictError{Entity: "user", Field: "username", Value: user.Username}
		}
		return nil, &PersistenceError{Op: "create user", Err: err}
	}
	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &UnauthorizedError{Reason: "invalid username or password"}
		}
		return nil, &PersistenceError{Op: "load user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Reason: "invalid username or password"}
	}
	if !user.IsActive {
		return nil, &UnauthorizedError{Reason: "account is disabled"}
	}

	expires := s.now().Add(tokenTTL)
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, &PersistenceError{Op: "sign token", Err: err}
	}

	return &TokenResponse{Token: signed, ExpiresAt: expires.UTC(), User: mapToResponse(user)}, nil
}

func (s *userService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, &UnauthorizedError{Reason: "invalid or expired token"}
	}
	return claims, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("user", id, "load user", err)
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list users", Err: err}
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

// EnsureAdmin creates the bootstrap administrator on an empty user table.
func (s *userService) EnsureAdmin(ctx context.Context, username, password string) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	if password == "" {
		return errors.New("ADMIN_PASSWORD must be set to seed the first user")
	}
	if _, err := s.CreateUser(ctx, CreateUserRequest{
		Username: username,
		FullName: "Administrator",
		Password: password,
		Role:     model.RoleAdmin,
	}); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"module": "user", "username": username}).Info("seeded administrator account")
	return nil
}
