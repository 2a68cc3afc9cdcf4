package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// Service verifies bearer tokens issued by the external auth provider.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// HashToken returns the digest under which a token is stored.
func HashToken(token string) []byte {
	sum := blake2b.Sum256([]byte(token))
	return sum[:]
}

// Verify resolves the account owning token.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	accountID, err := s.repo.AccountForToken(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return accountID, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
