package auth

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/id"
)

const (
	tokenIssuer   = "talespring-identity"
	tokenAudience = "talespring-api"

	// PASETO v4 symmetric key requirements.
	keyBytesSize = 32 // 256 bits
	keyHexSize   = 64 // 32 bytes as hex string

	// DefaultTokenDuration is the lifetime of tokens minted by IssueIdentityToken.
	DefaultTokenDuration = time.Hour
)

// ErrInvalidToken is returned for tokens that fail decryption or claim checks.
var ErrInvalidToken = errors.New("invalid identity token")

// TokenService verifies identity tokens minted by the identity provider with
// a shared PASETO v4 local key. It can also mint them, for tools and tests.
type TokenService struct {
	symmetricKey  paseto.V4SymmetricKey
	tokenDuration time.Duration
	now           func() time.Time
}

// NewTokenService creates a token service from a hex encoded 32 byte key.
func NewTokenService(keyHex string, tokenDuration time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexSize, keyBytesSize, len(keyHex))
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}
	return NewTokenServiceFromKey(keyBytes, tokenDuration)
}

// NewTokenServiceFromKey creates a token service from raw key bytes.
func NewTokenServiceFromKey(key []byte, tokenDuration time.Duration) (*TokenService, error) {
	if len(key) != keyBytesSize {
		return nil, fmt.Errorf("key must be exactly %d bytes, got %d", keyBytesSize, len(key))
	}

	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	if tokenDuration <= 0 {
		tokenDuration = DefaultTokenDuration
	}

	return &TokenService{
		symmetricKey:  symmetric,
		tokenDuration: tokenDuration,
		now:           time.Now,
	}, nil
}

// IssueIdentityToken mints a v4.local token for identity.
func (s *TokenService) IssueIdentityToken(identity domain.Identity) (string, error) {
	if identity.Anonymous() {
		return "", errors.New("cannot issue a token without a user id")
	}
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(identity.ID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.tokenDuration))

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on values that fail to marshal
	_ = token.Set("user_id", identity.ID)
	//nolint:errcheck // Token.Set only errors on values that fail to marshal
	_ = token.Set("display_name", identity.DisplayName)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyIdentityToken decrypts a token and checks issuer, audience and validity window.
func (s *TokenService) VerifyIdentityToken(tokenString string) (domain.Identity, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims IdentityClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: parse claims: %v", ErrInvalidToken, err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return domain.Identity{ID: userID, DisplayName: claims.DisplayName}, nil
}

// TokenDuration returns the lifetime of issued tokens.
func (s *TokenService) TokenDuration() time.Duration {
	return s.tokenDuration
}
