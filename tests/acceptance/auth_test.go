package acceptance

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/utils"
	"github.com/google/uuid"
)

const testUserAgent = "acceptance-test-agent"

// seedSession inserts an active session row and returns the raw refresh
// token the client would hold
func (s *Suite) seedSession(userID string) string {
	token, err := utils.GenerateRandomToken()
	s.Require().NoError(err)

	_, err = s.Postgres.DB.Exec(`
		INSERT INTO sessions (id, user_id, refresh_token_hash, fingerprint_hash, ip_address, created_at, expires_at)
		VALUES ($1, $2, $3, $4, '127.0.0.1', now(), $5)
	`,
		uuid.New().String(),
		userID,
		utils.HashValue(testRefreshSecret, token),
		utils.HashValue(testRefreshSecret, utils.NormalizeUserAgent(testUserAgent)),
		time.Now().Add(time.Hour),
	)
	s.Require().NoError(err, "Failed to seed session")
	return token
}

// refresh performs a rotation request with the full cookie and header set
func (s *Suite) refresh(refreshToken, csrfToken string, csrfCookie *http.Cookie) *http.Response {
	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/auth/refresh", strings.NewReader(`{}`))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", s.BaseURL)
	req.Header.Set("User-Agent", testUserAgent)
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshToken})
	req.AddCookie(csrfCookie)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err, "Refresh request failed")
	return resp
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func cookieValue(resp *http.Response, name string) (string, bool) {
	if cookie := responseCookie(resp, name); cookie != nil {
		return cookie.Value, true
	}
	return "", false
}

func (s *Suite) TestRefreshRotatesCredential() {
	user := &domain.User{
		DiscordID: "200000000000000001",
		Username:  "session#0001",
		Level:     domain.LevelUser,
		Balance:   0,
		Approved:  true,
	}
	s.seedUser(user)
	refreshToken := s.seedSession(user.DiscordID)

	csrfToken, csrfCookie := s.fetchCsrf()

	resp := s.refresh(refreshToken, csrfToken, csrfCookie)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected rotation to succeed")

	rotated := responseCookie(resp, "refresh_token")
	s.Require().NotNil(rotated, "Expected a fresh refresh_token cookie")
	s.NotEqual(refreshToken, rotated.Value, "Expected the credential to rotate")
	s.Equal("/auth", rotated.Path, "Expected the refresh cookie to reach both refresh and logout")

	if _, ok := cookieValue(resp, "access_token"); !ok {
		s.Fail("Expected a fresh access_token cookie")
	}
}

// The CSRF pair must be issuable with no credential at all, otherwise a
// client whose access token expired could never rotate its session.
func (s *Suite) TestCsrfIssuedWithoutCredential() {
	resp, err := http.Get(s.BaseURL + "/auth/csrf")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected csrf issuance without a credential")

	var body struct {
		CsrfToken string `json:"csrf_token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.NotEmpty(body.CsrfToken, "Expected a raw csrf token in the body")
	s.NotNil(responseCookie(resp, "csrf_hash"), "Expected the matching hash cookie")
}

func (s *Suite) TestLogoutRevokesPresentedSession() {
	user := &domain.User{
		DiscordID: "200000000000000003",
		Username:  "session#0003",
		Level:     domain.LevelUser,
		Balance:   0,
		Approved:  true,
	}
	s.seedUser(user)
	presented := s.seedSession(user.DiscordID)
	s.seedSession(user.DiscordID)

	accessToken := s.accessTokenFor(user)
	csrfToken, csrfCookie := s.fetchCsrf()

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/auth/logout", strings.NewReader(`{}`))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", s.BaseURL)
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: accessToken})
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: presented})
	req.AddCookie(csrfCookie)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err, "Logout request failed")
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected logout to succeed")

	active := s.queryInt(`SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND revoked_at IS NULL`, user.DiscordID)
	s.Equal(1, active, "Expected only the presented session to be revoked")

	revoked := s.queryInt(`SELECT COUNT(*) FROM sessions WHERE refresh_token_hash = $1 AND revoked_at IS NOT NULL`,
		utils.HashValue(testRefreshSecret, presented))
	s.Equal(1, revoked, "Expected the presented session to be revoked")
}

func (s *Suite) TestRefreshReuseLocksOutTheWholeLineage() {
	user := &domain.User{
		DiscordID: "200000000000000002",
		Username:  "session#0002",
		Level:     domain.LevelUser,
		Balance:   0,
		Approved:  true,
	}
	s.seedUser(user)
	stolen := s.seedSession(user.DiscordID)

	csrfToken, csrfCookie := s.fetchCsrf()

	// Legitimate rotation consumes the credential
	first := s.refresh(stolen, csrfToken, csrfCookie)
	first.Body.Close()
	s.Require().Equal(http.StatusOK, first.StatusCode)

	rotated, ok := cookieValue(first, "refresh_token")
	s.Require().True(ok)

	// Replaying the consumed credential trips reuse detection
	second := s.refresh(stolen, csrfToken, csrfCookie)
	second.Body.Close()
	s.Equal(http.StatusUnauthorized, second.StatusCode, "Expected reuse to be rejected")

	// Every session of the user is dead, including the legitimate one
	third := s.refresh(rotated, csrfToken, csrfCookie)
	third.Body.Close()
	s.Equal(http.StatusUnauthorized, third.StatusCode, "Expected the rotated credential to be revoked too")

	active := s.queryInt(`SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND revoked_at IS NULL`, user.DiscordID)
	s.Equal(0, active, "Expected no active sessions after reuse detection")
}

func (s *Suite) TestLoginRedirectsToProvider() {
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(s.BaseURL + "/auth/discord")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusFound, resp.StatusCode, "Expected a redirect")
	location := resp.Header.Get("Location")
	s.Contains(location, "discord.com", "Expected a Discord authorize URL")
	s.Contains(location, "state=", "Expected the state parameter")
}

func (s *Suite) TestCallbackRejectsUnknownState() {
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(s.BaseURL + "/auth/discord/callback?code=x&state=forged")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode, "Expected a forged state to be rejected")
}
