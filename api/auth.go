package api

import (
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const (
	defaultTokenTTL     = 7 * 24 * time.Hour
	defaultJWKSCacheTTL = 15 * time.Minute
	envJWKSCacheTTL     = "JWKS_CACHE_TTL"
)

// Auth issues and validates bearer tokens. With a shared secret it runs in
// HS256 mode and can mint tokens; with a JWKS it verifies RS256 tokens from an
// external issuer and cannot issue.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string

	secret      []byte
	tokenTTL    time.Duration
	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates an HS256 Auth from a shared secret.
func NewAuth(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: secret is required")
	}
	return &Auth{
		secret:      secret,
		tokenTTL:    defaultTokenTTL,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		keyCacheTTL: parseCacheTTL(),
	}
}

// NewJWKSAuth creates a verify-only Auth against an external JWKS issuer.
func NewJWKSAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	if jwks == nil {
		panic("api.NewJWKSAuth: jwks is required")
	}
	return &Auth{
		JWKS:        jwks,
		Audience:    audience,
		Issuer:      issuer,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL: parseCacheTTL(),
	}
}

func parseCacheTTL() time.Duration {
	ttl := defaultJWKSCacheTTL
	if raw := os.Getenv(envJWKSCacheTTL); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			panic("invalid JWKS_CACHE_TTL")
		}
		ttl = parsed
	}
	return ttl
}

// IssueToken mints a sliding-expiry HS256 token carrying the user identity.
func (a *Auth) IssueToken(userID, username string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("token issuance requires HS256 mode")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"userId":   userID,
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(a.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// PrincipalFromAuthHeader resolves the principal from an Authorization header.
func (a *Auth) PrincipalFromAuthHeader(h string) (Principal, error) {
	if h == "" {
		return Principal{}, errMissingAuthorization
	}
	token, err := bearerTokenFromString(h)
	if err != nil {
		return Principal{}, err
	}
	return a.PrincipalFromBearer(token)
}

// PrincipalFromBearer verifies a raw bearer token and extracts the principal.
func (a *Auth) PrincipalFromBearer(token []byte) (Principal, error) {
	if len(token) == 0 {
		return Principal{}, errBadAuthorization
	}

	tokenStr := readOnlyString(token)
	var parsedToken *jwt.Token
	var err error
	if len(a.secret) > 0 {
		parsedToken, err = a.parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.secret, nil
		})
	} else {
		parsedToken, err = a.parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return a.keyForToken(t)
		})
	}
	if err != nil {
		return Principal{}, err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Principal{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Principal{}, errors.New("token not valid yet")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return Principal{}, errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return Principal{}, errors.New("invalid issuer")
	}

	userID, _ := claims["userId"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return Principal{}, errors.New("missing user identity claim")
	}
	username, _ := claims["username"].(string)

	return Principal{UserID: userID, Username: username}, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}

// authStatus maps a principal-resolution failure to its HTTP status: a request
// with no usable credential gets 401, a rejected credential gets 403.
func authStatus(err error) int {
	if errors.Is(err, errMissingAuthorization) || errors.Is(err, errBadAuthorization) {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}
