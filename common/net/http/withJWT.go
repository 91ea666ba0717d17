package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LerianStudio/midaz/common/mlog"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/patrickmn/go-cache"
)

const jwkDefaultDuration = time.Hour * 1

// TokenContextValue is a wrapper type used to keep Context.Locals safe.
type TokenContextValue string

// PrincipalContextValue is the Locals key the resolved Principal id is
// stored under once a request clears Protect().
const PrincipalContextValue = TokenContextValue("principal")

// OAuth2JWTToken represents a self-contained way for securely transmitting information between parties as a JSON object
// https://tools.ietf.org/html/rfc7519
type OAuth2JWTToken struct {
	Token  *jwt.Token
	Claims jwt.MapClaims
	Sub    string
}

// SubjectTokenParser resolves the control-plane Principal id from the
// standard `sub` claim. There is no hosted IAM/enforcement service behind
// this token: authorization itself is the static scope map the data router
// owns, so the only thing the JWT layer needs to produce is "who is this".
type SubjectTokenParser struct{}

func (p *SubjectTokenParser) ParseToken(token *jwt.Token) (*OAuth2JWTToken, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid JWT token")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("JWT token is missing a sub claim")
	}

	return &OAuth2JWTToken{Token: token, Claims: claims, Sub: sub}, nil
}

func TokenFromContext(c *fiber.Ctx) (*OAuth2JWTToken, error) {
	tokenValue := c.Locals(string(TokenContextValue("token")))

	token, ok := tokenValue.(*jwt.Token)
	if !ok {
		return nil, errors.New("invalid JWT token")
	}

	return (&SubjectTokenParser{}).ParseToken(token)
}

// PrincipalFromContext returns the agent/service identity resolved by
// Protect(), i.e. the JWT's `sub` claim.
func PrincipalFromContext(c *fiber.Ctx) (string, bool) {
	v, ok := c.Locals(string(PrincipalContextValue)).(string)
	return v, ok
}

func getTokenHeader(c *fiber.Ctx) string {
	splitToken := strings.Split(c.Get(fiber.HeaderAuthorization), "Bearer")
	if len(splitToken) == 2 {
		return strings.TrimSpace(splitToken[1])
	}

	return ""
}

// JWKProvider manages cryptographic public keys issued by an authorization server
// See https://tools.ietf.org/html/rfc7517
// It's used to verify JSON Web Tokens which was signed using RS256 signing algorithm.
type JWKProvider struct {
	URI           string
	CacheDuration time.Duration
	cache         *cache.Cache
	once          sync.Once
}

// Fetch fetches (JWKS) JSON Web Key Set from authorization server and cache it
//
//nolint:ireturn
func (p *JWKProvider) Fetch(ctx context.Context) (jwk.Set, error) {
	p.once.Do(func() {
		p.cache = cache.New(p.CacheDuration, p.CacheDuration)
	})

	if set, found := p.cache.Get(p.URI); found {
		return set.(jwk.Set), nil
	}

	set, err := jwk.Fetch(ctx, p.URI)
	if err != nil {
		return nil, err
	}

	p.cache.Set(p.URI, set, p.CacheDuration)

	return set, nil
}

// JWTMiddleware verifies bearer tokens against a JWKS endpoint and resolves
// the request's Principal from the token's `sub` claim.
type JWTMiddleware struct {
	JWK *JWKProvider
}

// NewJWTMiddleware creates an instance of JWTMiddleware backed by the JWKS
// endpoint at jwkURI, cached for one hour.
func NewJWTMiddleware(jwkURI string) *JWTMiddleware {
	return &JWTMiddleware{
		JWK: &JWKProvider{
			URI:           jwkURI,
			CacheDuration: jwkDefaultDuration,
		},
	}
}

// Protect verifies the bearer token against the JWKS key set and, on
// success, stashes both the parsed token and the resolved Principal id in
// the fiber context for downstream handlers.
func (m *JWTMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := mlog.NewLoggerFromContext(c.UserContext())
		l.Debug("JWTMiddleware:Protect")

		tokenString := getTokenHeader(c)
		if len(tokenString) == 0 {
			return Unauthorized(c, "INVALID_REQUEST", "Unauthorized", "must provide a bearer token")
		}

		keySet, err := m.JWK.Fetch(context.Background())
		if err != nil {
			msg := fmt.Sprint("couldn't load JWK keys from source: ", err.Error())
			l.Error(msg)

			return InternalServerError(c, "JWK_FETCH_FAILED", "Internal Server Error", msg)
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}

			kid, ok := token.Header["kid"].(string)
			if !ok {
				return nil, errors.New("kid header not found")
			}

			key, ok := keySet.LookupKeyID(kid)
			if !ok {
				return nil, errors.New("token does not belong to a trusted issuer")
			}

			var raw any
			if err := key.Raw(&raw); err != nil {
				return nil, err
			}

			return raw, nil
		})
		if err != nil {
			l.Error(err.Error())
			return Unauthorized(c, "AUTH_SERVER_ERROR", "Unauthorized", err.Error())
		}

		if !token.Valid {
			return Unauthorized(c, "INVALID_TOKEN", "Unauthorized", "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if ok {
			if exp, ok := claims["exp"].(float64); ok && time.Unix(int64(exp), 0).Before(time.Now()) {
				return Unauthorized(c, "INVALID_TOKEN", "Unauthorized", "token is expired")
			}
		}

		c.Locals(string(TokenContextValue("token")), token)

		parsed, err := (&SubjectTokenParser{}).ParseToken(token)
		if err != nil {
			return Unauthorized(c, "INVALID_TOKEN", "Unauthorized", err.Error())
		}

		c.Locals(string(PrincipalContextValue), parsed.Sub)

		return c.Next()
	}
}
