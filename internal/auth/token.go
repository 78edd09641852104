package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/warbler/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims API 访问令牌，Subject 为用户 id
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenProvider 签发与校验 HS256 令牌
type TokenProvider struct {
	secret []byte
	expire time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenProvider(cfg config.JWTConfig) *TokenProvider {
	expire := cfg.Expire
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	return &TokenProvider{secret: []byte(cfg.Secret), expire: expire, issuer: cfg.Issuer, now: time.Now}
}

// Issue 返回令牌及其过期时间
func (p *TokenProvider) Issue(userID, username string) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.expire)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    p.issuer,
			Subject:   userID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate 校验签名、算法与有效期，返回用户 id
func (p *TokenProvider) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
