package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes distinguish the three signed-token kinds; a token issued for one
// scope never parses under another.
const (
	ScopeAccess  = "access"
	ScopeRefresh = "refresh"
	ScopeVerify  = "verify"
)

var (
	// ErrTokenExpired means the signature checked out but the token is past
	// its expiry (beyond the configured leeway).
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other failure: bad signature, wrong scope,
	// wrong issuer, unparseable structure. Deliberately undifferentiated so
	// callers cannot build an oracle out of the failure mode.
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the compact tokens used for email
// verification and for the signed access/refresh pair. It holds one signing
// key and any number of secondary verify keys, so the signing key can rotate
// while tokens minted under the previous key stay verifiable.
type TokenCodec struct {
	issuer     string
	signingKey []byte
	verifyKeys [][]byte
	leeway     time.Duration
}

func NewTokenCodec(issuer, signingKey string, extraVerifyKeys []string, leeway time.Duration) *TokenCodec {
	keys := make([][]byte, 0, len(extraVerifyKeys)+1)
	keys = append(keys, []byte(signingKey))
	for _, k := range extraVerifyKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	return &TokenCodec{
		issuer:     issuer,
		signingKey: []byte(signingKey),
		verifyKeys: keys,
		leeway:     leeway,
	}
}

func (c *TokenCodec) Issue(accountID uint, scope string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
}

// Parse verifies the token against every configured key and validates the
// scope. The error is ErrTokenExpired only when a signature matched and the
// expiry is the sole problem; everything else collapses to ErrTokenInvalid.
func (c *TokenCodec) Parse(token, scope string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
	)
	expired := false
	for _, key := range c.verifyKeys {
		claims := &Claims{}
		_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err == nil {
			if claims.Scope != scope {
				return nil, ErrTokenInvalid
			}
			return claims, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			expired = true
		}
	}
	if expired {
		return nil, ErrTokenExpired
	}
	return nil, ErrTokenInvalid
}

// SubjectID extracts the account id a parsed token was bound to.
func (cl *Claims) SubjectID() (uint, error) {
	id, err := strconv.ParseUint(cl.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return uint(id), nil
}
