package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind separates app session tokens from checkout callback tokens.
type TokenKind string

const (
	KindSession  TokenKind = "session"
	KindCheckout TokenKind = "checkout"
)

// Claims represents JWT claims used by this service.
type Claims struct {
	Kind      TokenKind `json:"kind"`
	AccountID string    `json:"account_id"`
	OrderID   string    `json:"order_id,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and validates HS256 tokens with one secret.
type Tokens struct {
	secret []byte
	issuer string
}

// NewTokens constructs a signer.
func NewTokens(secret []byte, issuer string) (*Tokens, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}
	if issuer == "" {
		issuer = "meterpay"
	}
	return &Tokens{secret: secret, issuer: issuer}, nil
}

// IssueSessionToken signs a bearer token for one login of an account.
// sessionID becomes the jti claim so the login can be revoked on its own.
func (t *Tokens) IssueSessionToken(accountID, sessionID string, ttl time.Duration) (string, error) {
	if accountID == "" {
		return "", errors.New("auth: empty account id")
	}
	if sessionID == "" {
		return "", errors.New("auth: empty session id")
	}
	claims := Claims{Kind: KindSession, AccountID: accountID}
	claims.ID = sessionID
	return t.sign(claims, accountID, ttl)
}

// ParseSessionToken validates a bearer token and returns its claims.
func (t *Tokens) ParseSessionToken(token string) (*Claims, error) {
	return t.parse(token, KindSession)
}

// IssueCheckoutToken signs the token embedded in a checkout page URL.
func (t *Tokens) IssueCheckoutToken(orderID, customerRef string, ttl time.Duration) (string, error) {
	if orderID == "" {
		return "", errors.New("auth: empty order id")
	}
	return t.sign(Claims{Kind: KindCheckout, AccountID: customerRef, OrderID: orderID}, orderID, ttl)
}

// ParseCheckoutToken validates a checkout token and returns its order and customer.
func (t *Tokens) ParseCheckoutToken(token string) (string, string, error) {
	claims, err := t.parse(token, KindCheckout)
	if err != nil {
		return "", "", err
	}
	if claims.OrderID == "" {
		return "", "", ErrInvalidToken
	}
	return claims.OrderID, claims.AccountID, nil
}

func (t *Tokens) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:       claims.ID,
		Issuer:   t.issuer,
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) parse(tokenString string, kind TokenKind) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if kind == KindSession && (claims.AccountID == "" || claims.ID == "") {
		return nil, fmt.Errorf("%w: missing account_id or jti", ErrInvalidToken)
	}
	return claims, nil
}
