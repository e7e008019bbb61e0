package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"taskhub-backend/internal/apperr"
)

// Identity is the verified claim set returned for a valid Google ID token.
type Identity struct {
	Subject       string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// Verifier validates an opaque identity credential and yields verified claims.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// TokenInfoVerifier checks ID tokens against Google's tokeninfo endpoint.
type TokenInfoVerifier struct {
	endpoint string
	client   *http.Client
}

func NewTokenInfoVerifier() *TokenInfoVerifier {
	return &TokenInfoVerifier{
		endpoint: "https://oauth2.googleapis.com/tokeninfo",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// tokenInfo mirrors Google's response; email_verified arrives as the string "true".
type tokenInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified string `json:"email_verified"`
}

func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	u := fmt.Sprintf("%s?id_token=%s", v.endpoint, url.QueryEscape(idToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "identity provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "invalid identity token",
			fmt.Errorf("tokeninfo status %d: %s", resp.StatusCode, body))
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "malformed identity token response", err)
	}

	return &Identity{
		Subject:       info.Sub,
		Email:         info.Email,
		Name:          info.Name,
		Picture:       info.Picture,
		EmailVerified: info.EmailVerified == "true",
	}, nil
}
