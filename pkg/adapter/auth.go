package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/iin-community/kehila/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidToken = goerr.New("invalid token")

// TokenVerifier resolves a bearer token to a caller identity. Token issuance
// and validation belong to the external identity service; this is only the
// lookup edge.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// httpTokenVerifier asks the identity service's userinfo endpoint to resolve
// the token.
type httpTokenVerifier struct {
	endpoint string
	client   *http.Client
}

// NewTokenVerifier creates a TokenVerifier backed by the identity service at
// endpoint.
func NewTokenVerifier(endpoint string) TokenVerifier {
	return &httpTokenVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *httpTokenVerifier) Verify(ctx context.Context, token string) (*model.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call identity service")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, goerr.Wrap(ErrInvalidToken, "identity service rejected token")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected status from identity service", goerr.V("status", resp.StatusCode))
	}

	var identity model.Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, goerr.Wrap(err, "failed to decode identity response")
	}
	if identity.Email == "" {
		return nil, goerr.Wrap(ErrInvalidToken, "identity response missing email")
	}

	return &identity, nil
}
