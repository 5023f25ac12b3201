package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// AuthModule issues and validates JWT access tokens. It is a thin gate in
// front of the API; the engine itself never touches it.
type AuthModule struct {
	db        *pgxpool.Pool
	jwtSecret string
}

// NewAuthModule creates the auth module.
func NewAuthModule(db *pgxpool.Pool, jwtSecret string) *AuthModule {
	return &AuthModule{db: db, jwtSecret: jwtSecret}
}

// Identity is the authenticated scope resolved from a token.
type Identity struct {
	UserID string
	HomeID string
}

func (a *AuthModule) generateJWT(userID, homeID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"home_id": homeID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.jwtSecret))
}

func (a *AuthModule) createUser(ctx context.Context, username, password, homeID string) (string, error) {
	var exists bool
	err := a.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists)
	if err != nil {
		return "", err
	}
	if exists {
		return "", errors.New("username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	var userID string
	err = a.db.QueryRow(ctx,
		"INSERT INTO users (username, password, home_id) VALUES ($1, $2, $3) RETURNING id",
		username, string(hashedPassword), homeID,
	).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (a *AuthModule) authenticateUser(ctx context.Context, username, password string) (Identity, error) {
	var id Identity
	var passwordHash string
	err := a.db.QueryRow(ctx,
		"SELECT id, home_id, password FROM users WHERE username = $1", username).
		Scan(&id.UserID, &id.HomeID, &passwordHash)
	if err != nil {
		return Identity{}, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return Identity{}, errors.New("invalid credentials")
	}
	return id, nil
}

// Register creates a user bound to a home and returns a token.
func (a *AuthModule) Register(ctx context.Context, username, password, homeID string) (string, error) {
	userID, err := a.createUser(ctx, username, password, homeID)
	if err != nil {
		return "", err
	}
	return a.generateJWT(userID, homeID)
}

// Login authenticates a user and returns a token.
func (a *AuthModule) Login(ctx context.Context, username, password string) (string, error) {
	id, err := a.authenticateUser(ctx, username, password)
	if err != nil {
		return "", err
	}
	return a.generateJWT(id.UserID, id.HomeID)
}

// ValidateToken parses a token and returns the identity it carries.
func (a *AuthModule) ValidateToken(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.jwtSecret), nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return Identity{}, errors.New("invalid user_id in token")
	}
	homeID, ok := claims["home_id"].(string)
	if !ok {
		return Identity{}, errors.New("invalid home_id in token")
	}
	return Identity{UserID: userID, HomeID: homeID}, nil
}
