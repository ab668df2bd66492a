package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when an email/password pair does not match an account.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned when a session token is malformed, expired or forged.
var ErrInvalidToken = errors.New("invalid or expired session")

// ErrRoleNotAllowed is returned when self-registration asks for a privileged role.
var ErrRoleNotAllowed = errors.New("role cannot be self-assigned")

const tokenIssuer = "bandhub"

// Claims are the JWT claims carried by a session token. The subject is the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service provides account and session operations.
type Service struct {
	userRepo   UserRepository
	bcryptCost int
	secret     []byte
	ttl        time.Duration
	now        func() time.Time

	compare   func(hash, password []byte) error
	dummyHash func() []byte
}

// NewService creates a new auth Service.
func NewService(userRepo UserRepository, bcryptCost int, secret []byte, ttl time.Duration) *Service {
	return &Service{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
		secret:     secret,
		ttl:        ttl,
		now:        time.Now,
		compare:    bcrypt.CompareHashAndPassword,
		dummyHash:  sync.OnceValue(func() []byte {
			hash, err := bcrypt.GenerateFromPassword([]byte("bandhub-unknown-account"), bcryptCost)
			if err != nil {
				slog.Error("generating dummy password hash", "error", err)
			}
			return hash
		}),
	}
}

// TTL returns the lifetime of issued session tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Register creates a new fan or artist account.
func (s *Service) Register(ctx context.Context, email, name, password, role string) (*User, error) {
	if role == "" {
		role = RoleFan
	}
	if role != RoleFan && role != RoleArtist {
		return nil, ErrRoleNotAllowed
	}

	return s.createUser(ctx, email, name, password, role)
}

// Login verifies credentials and returns the account with a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown emails pay for one comparison, same as a wrong password.
			_ = s.compare(s.dummyHash(), []byte(password))
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("looking up user: %w", err)
	}

	if s.compare([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return nil, "", err
	}

	return u, token, nil
}

// IssueToken signs an HS256 session token for the given user.
func (s *Service) IssueToken(u *User) (string, error) {
	now := s.now()
	claims := &Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns the user ID it was issued for.
func (s *Service) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// Authenticate resolves a session token to an Identity. The role is read from the
// database so a demoted account loses privileges before its token expires.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*Identity, error) {
	userID, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("loading session user: %w", err)
	}

	return &Identity{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
	}, nil
}

// BootstrapAdmin creates the initial admin account if no admin exists yet.
// Returns true when an account was created.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}

	count, err := s.userRepo.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.createUser(ctx, email, "admin", password, RoleAdmin); err != nil {
		return false, fmt.Errorf("creating admin: %w", err)
	}

	slog.Info("admin account created", "email", email)
	return true, nil
}

func (s *Service) createUser(ctx context.Context, email, name, password, role string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
