package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropforge/case-service/internal/domain"
)

const (
	discordAuthURL  = "https://discord.com/api/oauth2/authorize"
	discordTokenURL = "https://discord.com/api/oauth2/token"
	discordUserURL  = "https://discord.com/api/users/@me"

	// identityScope is the only scope the flow needs: who the user is
	identityScope = "identify"
)

// DiscordClient drives the authorization-code grant against Discord.
// All outbound calls are bounded by the configured timeout so a hanging
// provider surfaces as an error instead of an indefinite suspension.
type DiscordClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

// Profile is the subset of the Discord user object the service needs
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// DisplayName returns the username with its discriminator suffix
func (p Profile) DisplayName() string {
	return fmt.Sprintf("%s#%s", p.Username, p.Discriminator)
}

// AvatarURL returns the CDN URL of the user's avatar, or nil if unset
func (p Profile) AvatarURL() *string {
	if p.Avatar == "" {
		return nil
	}
	u := fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", p.ID, p.Avatar)
	return &u
}

// NewDiscordClient creates a new Discord OAuth client
func NewDiscordClient(clientID, clientSecret, redirectURI string, timeout time.Duration) *DiscordClient {
	return &DiscordClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// RedirectURI returns the configured callback URI
func (c *DiscordClient) RedirectURI() string {
	return c.redirectURI
}

// AuthorizeURL builds the provider authorization URL for a state value
func (c *DiscordClient) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", identityScope)
	params.Set("state", state)
	return fmt.Sprintf("%s?%s", discordAuthURL, params.Encode())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// ExchangeCode exchanges an authorization code for a provider access token
// and verifies the granted scope includes the identity scope
func (c *DiscordClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, discordTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint returned status %d: %w", resp.StatusCode, domain.ErrOAuthExchange)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if !grantedScopeIncludes(token.Scope, identityScope) {
		return "", fmt.Errorf("granted scope %q: %w", token.Scope, domain.ErrOAuthScope)
	}

	return token.AccessToken, nil
}

// FetchProfile fetches the remote user profile with the provider access token
func (c *DiscordClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discordUserURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("profile endpoint returned status %d: %w", resp.StatusCode, domain.ErrOAuthExchange)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}

	if profile.ID == "" {
		return nil, fmt.Errorf("profile response missing user id: %w", domain.ErrOAuthExchange)
	}

	return &profile, nil
}

func grantedScopeIncludes(scope, required string) bool {
	for _, granted := range strings.Fields(scope) {
		if granted == required {
			return true
		}
	}
	return false
}
