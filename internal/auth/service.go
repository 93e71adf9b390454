package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

var (
	// ErrDuplicateRobot is returned when enrolling a name that already exists.
	ErrDuplicateRobot = errors.New("robot already enrolled")
	// ErrInvalidCredentials is returned on unknown robot or wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const tokenTTL = 24 * time.Hour

type Service interface {
	Register(ctx context.Context, name, secret string) (*models.Robot, error)
	Login(ctx context.Context, name, secret string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

type service struct {
	repo   Repository
	secret []byte
	now    func() time.Time
}

func NewService(repo Repository, secret string) *service {
	return &service{repo: repo, secret: []byte(secret), now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

func (s *service) Register(ctx context.Context, name, secret string) (*models.Robot, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	rb := &models.Robot{ID: uuid.New(), Name: name, SecretHash: string(hash)}
	if err := s.repo.Create(ctx, rb); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateRobot
		}
		return nil, err
	}
	return rb, nil
}

func (s *service) Login(ctx context.Context, name, secret string) (string, error) {
	rb, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	if rb == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rb.SecretHash), []byte(secret)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(rb)
}

func (s *service) issueToken(rb *models.Robot) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rb.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name: rb.Name,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken returns the robot ID carried by a token issued by Login.
func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(c.Subject)
}
