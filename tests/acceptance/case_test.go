package acceptance

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dropforge/case-service/internal/domain"
)

func (s *Suite) TestOpenCaseEndToEnd() {
	user := &domain.User{
		DiscordID: "100000000000000001",
		Username:  "player#0001",
		Level:     domain.LevelUser,
		Balance:   500,
		Approved:  true,
	}
	s.seedUser(user)
	s.seedCase(&domain.Case{Name: "starter", Price: 100, MinLevel: domain.LevelUser}, "Common skin", "Редкий", nil)

	accessToken := s.accessTokenFor(user)
	csrfToken, csrfCookie := s.fetchCsrf()

	resp, body := s.postJSON("/api/cases/open", accessToken, csrfToken, csrfCookie, map[string]string{"name": "starter"})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Open failed: %s", string(body))

	var result struct {
		Prize struct {
			Name   string `json:"name"`
			Rarity string `json:"rarity"`
		} `json:"prize"`
		Display []string `json:"display"`
	}
	s.Require().NoError(json.Unmarshal(body, &result))

	s.Equal("Common skin", result.Prize.Name)
	s.Len(result.Display, 17, "Expected the fixed-length display sequence")
	s.Equal("Common skin", result.Display[12], "Expected the awarded prize at the fixed index")

	balance := s.queryInt(`SELECT balance FROM users WHERE discord_id = $1`, user.DiscordID)
	s.Equal(400, balance, "Expected the price to be charged")

	opens := s.queryInt(`SELECT COUNT(*) FROM case_opens WHERE user_id = $1`, user.DiscordID)
	s.Equal(1, opens, "Expected one recorded open")
}

func (s *Suite) TestOpenCaseRequiresCsrf() {
	user := &domain.User{
		DiscordID: "100000000000000002",
		Username:  "player#0002",
		Level:     domain.LevelUser,
		Balance:   500,
		Approved:  true,
	}
	s.seedUser(user)
	s.seedCase(&domain.Case{Name: "starter", Price: 100, MinLevel: domain.LevelUser}, "Common skin", "Редкий", nil)

	accessToken := s.accessTokenFor(user)

	// Valid access credential, no CSRF token at all
	resp, _ := s.postJSON("/api/cases/open", accessToken, "", nil, map[string]string{"name": "starter"})
	s.Equal(http.StatusForbidden, resp.StatusCode, "Expected 403 without a CSRF token")

	opens := s.queryInt(`SELECT COUNT(*) FROM case_opens WHERE user_id = $1`, user.DiscordID)
	s.Equal(0, opens, "Expected no open to be recorded")
}

func (s *Suite) TestOpenCaseInsufficientBalance() {
	user := &domain.User{
		DiscordID: "100000000000000003",
		Username:  "player#0003",
		Level:     domain.LevelUser,
		Balance:   50,
		Approved:  true,
	}
	s.seedUser(user)
	s.seedCase(&domain.Case{Name: "pricey", Price: 100, MinLevel: domain.LevelUser}, "Common skin", "Редкий", nil)

	accessToken := s.accessTokenFor(user)
	csrfToken, csrfCookie := s.fetchCsrf()

	resp, body := s.postJSON("/api/cases/open", accessToken, csrfToken, csrfCookie, map[string]string{"name": "pricey"})
	s.Equal(http.StatusBadRequest, resp.StatusCode, "Expected 400: %s", string(body))

	balance := s.queryInt(`SELECT balance FROM users WHERE discord_id = $1`, user.DiscordID)
	s.Equal(50, balance, "Expected the balance to be untouched")
}

// Two concurrent opens against a case with one unit of global stock must
// yield exactly one success, never two.
func (s *Suite) TestConcurrentOpensRespectGlobalLimit() {
	one := 1
	s.seedCase(&domain.Case{Name: "scarce", Price: 100, MinLevel: domain.LevelUser, MaxTotal: 1}, "Limited skin", "Легендарный", &one)

	users := []*domain.User{
		{DiscordID: "100000000000000010", Username: "racer#0001", Level: domain.LevelUser, Balance: 500, Approved: true},
		{DiscordID: "100000000000000011", Username: "racer#0002", Level: domain.LevelUser, Balance: 500, Approved: true},
	}

	type attempt struct {
		accessToken string
		csrfToken   string
		csrfCookie  *http.Cookie
	}
	attempts := make([]attempt, len(users))
	for i, user := range users {
		s.seedUser(user)
		accessToken := s.accessTokenFor(user)
		csrfToken, csrfCookie := s.fetchCsrf()
		attempts[i] = attempt{accessToken, csrfToken, csrfCookie}
	}

	statuses := make([]int, len(users))
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, _ := s.postJSON("/api/cases/open", attempts[i].accessToken, attempts[i].csrfToken, attempts[i].csrfCookie, map[string]string{"name": "scarce"})
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, status := range statuses {
		if status == http.StatusOK {
			successes++
		}
	}
	s.Equal(1, successes, "Expected exactly one success, got statuses %v", statuses)

	totalOpened := s.queryInt(`SELECT total_opened FROM cases WHERE name = 'scarce'`)
	s.Equal(1, totalOpened, "Expected the global counter to end at exactly 1")

	remaining := s.queryInt(`SELECT remaining FROM prizes WHERE case_name = 'scarce'`)
	s.Equal(0, remaining, "Expected the prize stock to end at exactly 0")
}

func (s *Suite) TestListCasesReturnsEnvelope() {
	user := &domain.User{
		DiscordID: "100000000000000020",
		Username:  "browser#0001",
		Level:     domain.LevelUser,
		Balance:   0,
		Approved:  true,
	}
	s.seedUser(user)
	s.seedCase(&domain.Case{Name: "starter", Price: 100, MinLevel: domain.LevelUser}, "Common skin", "Редкий", nil)

	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/api/cases", nil)
	s.Require().NoError(err)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: s.accessTokenFor(user)})

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Cases []struct {
			Name string `json:"name"`
		} `json:"cases"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().Len(body.Cases, 1, "Expected the listing under a cases key")
	s.Equal("starter", body.Cases[0].Name)
}

func (s *Suite) TestListCasesRequiresAuth() {
	resp, err := http.Get(s.BaseURL + "/api/cases")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode, "Expected 401 without a credential")
}
