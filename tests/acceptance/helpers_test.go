package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/utils"
)

// seedUser inserts a user row directly
func (s *Suite) seedUser(user *domain.User) {
	_, err := s.Postgres.DB.Exec(`
		INSERT INTO users (discord_id, username, avatar_url, level, balance, approved, blocked, opened_cases_count, created_at, updated_at)
		VALUES ($1, $2, NULL, $3, $4, $5, $6, 0, now(), now())
	`, user.DiscordID, user.Username, string(user.Level), user.Balance, user.Approved, user.Blocked)
	s.Require().NoError(err, "Failed to seed user")
}

// seedCase inserts a case with a single prize
func (s *Suite) seedCase(box *domain.Case, prizeName, rarity string, quantity *int) {
	_, err := s.Postgres.DB.Exec(`
		INSERT INTO cases (name, price, min_level, max_per_user, max_total, total_opened, image_url, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, NULL, $6, now(), now())
	`, box.Name, box.Price, string(box.MinLevel), box.MaxPerUser, box.MaxTotal, box.Disabled)
	s.Require().NoError(err, "Failed to seed case")

	_, err = s.Postgres.DB.Exec(`
		INSERT INTO prizes (case_name, position, name, rarity, quantity, remaining, image)
		VALUES ($1, 0, $2, $3, $4, $4, NULL)
	`, box.Name, prizeName, rarity, quantity)
	s.Require().NoError(err, "Failed to seed prize")
}

// accessTokenFor signs an access token the way the running app expects
func (s *Suite) accessTokenFor(user *domain.User) string {
	manager := utils.NewJWTManager(testJWTSecret, 10*time.Minute)
	token, err := manager.GenerateAccessToken(user)
	s.Require().NoError(err, "Failed to sign access token")
	return token
}

// fetchCsrf obtains a raw CSRF token and the matching hash cookie.
// The endpoint is unauthenticated so an expired access token never
// locks a client out of the refresh flow.
func (s *Suite) fetchCsrf() (string, *http.Cookie) {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/auth/csrf", nil)
	s.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err, "Failed to fetch csrf token")
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected csrf endpoint to succeed")

	var body struct {
		CsrfToken string `json:"csrf_token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().NotEmpty(body.CsrfToken)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrf_hash" {
			return body.CsrfToken, cookie
		}
	}

	s.T().Fatal("Expected a csrf_hash cookie")
	return "", nil
}

// postJSON performs an authenticated state-changing request with the full
// cookie and header set the server demands
func (s *Suite) postJSON(path, accessToken, csrfToken string, csrfCookie *http.Cookie, payload any) (*http.Response, []byte) {
	raw, err := json.Marshal(payload)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+path, bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", s.BaseURL)
	if csrfToken != "" {
		req.Header.Set("X-CSRF-Token", csrfToken)
	}
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: accessToken})
	}
	if csrfCookie != nil {
		req.AddCookie(csrfCookie)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err, "Request failed")
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, body
}

func (s *Suite) queryInt(query string, args ...any) int {
	var value int
	err := s.Postgres.DB.QueryRow(query, args...).Scan(&value)
	s.Require().NoError(err, fmt.Sprintf("Query failed: %s", query))
	return value
}
