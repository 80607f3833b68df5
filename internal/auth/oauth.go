package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrEmailNotVerified = errors.New("google account email not verified")

// GoogleAuthenticator runs the authorization-code flow against Google
// and maps the resulting identity onto a local account.
type GoogleAuthenticator struct {
	oauth       *oauth2.Config
	service     *Service
	users       UserStore
	userinfoURL string // overridable in tests
	httpClient  *http.Client
}

func NewGoogleAuthenticator(clientID, clientSecret, redirectURL string, service *Service, users UserStore) *GoogleAuthenticator {
	return &GoogleAuthenticator{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		service:     service,
		users:       users,
		userinfoURL: defaultUserinfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthCodeURL returns the Google consent page URL for the given state.
func (g *GoogleAuthenticator) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens, provisioning a
// local account on first sign-in.
func (g *GoogleAuthenticator) Exchange(ctx context.Context, code string) (Tokens, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	info, err := g.fetchUserinfo(ctx, token.AccessToken)
	if err != nil {
		return Tokens{}, err
	}
	if !info.Verified {
		return Tokens{}, ErrEmailNotVerified
	}

	u, err := g.users.UserByEmail(ctx, info.Email)
	if errors.Is(err, ErrUserNotFound) {
		u = User{
			ID:           uuid.NewString(),
			Email:        info.Email,
			AuthProvider: ProviderGoogle,
			CreatedAt:    time.Now().UnixMilli(),
		}
		if cerr := g.users.CreateUser(ctx, u); cerr != nil {
			return Tokens{}, fmt.Errorf("provision google user: %w", cerr)
		}
	} else if err != nil {
		return Tokens{}, fmt.Errorf("look up user: %w", err)
	}

	return g.service.signInExisting(u.ID)
}

type googleUserinfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified_email"`
}

func (g *GoogleAuthenticator) fetchUserinfo(ctx context.Context, accessToken string) (googleUserinfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return googleUserinfo{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return googleUserinfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return googleUserinfo{}, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserinfo{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return info, nil
}
