package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// SetContextFromToken validates a bearer token and attaches RequestData to ctx.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	MintToken(userID uuid.UUID, role string, ttl time.Duration) (string, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(log *logger.Logger, jwtSecretKey string, accessTTL time.Duration) AuthService {
	return &authService{
		log:          log.With("service", "AuthService"),
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) MintToken(userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	return MintToken(as.jwtSecretKey, userID, role, ttl)
}

// MintToken signs an HS256 access token; chatctl uses it for development logins.
func MintToken(secret string, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("missing user id")
	}
	role, err := normalizeRole(role)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, domainerrors.Unauthorized("missing token")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, domainerrors.Unauthorized(fmt.Sprintf("failed to parse token: %v", err))
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, domainerrors.Unauthorized("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, domainerrors.Unauthorized("invalid user id in token")
	}
	// The system role is never accepted from the wire.
	role, err := normalizeRole(claims.Role)
	if err != nil {
		return ctx, domainerrors.Unauthorized(err.Error())
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        role,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func normalizeRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", ctxutil.RoleUser:
		return ctxutil.RoleUser, nil
	case ctxutil.RoleAdmin:
		return ctxutil.RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}
