package auth

import (
	"errors"
	"strings"

	"github.com/snipstash/snipstash-server/internal/id"
)

// API keys are presented as sk_<keyID>_<secret>. The key ID locates the
// stored hash; only the secret is hashed.
const (
	apiKeyPrefix  = "sk"
	apiKeyIDLen   = 16
	apiSecretLen  = 40
	apiKeyDivider = "_"
)

// ErrMalformedAPIKey is returned by ParseAPIKey for strings that are not
// in the sk_<keyID>_<secret> shape.
var ErrMalformedAPIKey = errors.New("malformed api key")

// GeneratedAPIKey is a freshly minted key. Token is shown to the user once;
// Hash is what gets stored.
type GeneratedAPIKey struct {
	ID    string
	Token string
	Hash  string
}

// GenerateAPIKey mints a new key ID and secret and hashes the secret.
func GenerateAPIKey() (*GeneratedAPIKey, error) {
	idPart, err := id.Secret(apiKeyIDLen)
	if err != nil {
		return nil, err
	}
	secret, err := id.Secret(apiSecretLen)
	if err != nil {
		return nil, err
	}
	hash, err := hashSecret(secret)
	if err != nil {
		return nil, err
	}

	keyID := id.PrefixAPIKey + "-" + idPart
	return &GeneratedAPIKey{
		ID:    keyID,
		Token: apiKeyPrefix + apiKeyDivider + keyID + apiKeyDivider + secret,
		Hash:  hash,
	}, nil
}

// ParseAPIKey splits a presented key into its ID and secret.
func ParseAPIKey(token string) (keyID, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(token), apiKeyDivider)
	if len(parts) != 3 || parts[0] != apiKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", ErrMalformedAPIKey
	}
	return parts[1], parts[2], nil
}

// VerifyAPIKeySecret reports whether secret matches the stored hash.
func VerifyAPIKeySecret(hash, secret string) bool {
	return verifySecret(hash, secret)
}

// LooksLikeAPIKey reports whether token has the API key prefix. It does not
// validate the rest of the token.
func LooksLikeAPIKey(token string) bool {
	return strings.HasPrefix(token, apiKeyPrefix+apiKeyDivider)
}
