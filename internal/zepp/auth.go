package zepp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/domain"
)

// redirectGrant is the intermediate output of the password exchange,
// carried from phase 1 into phase 2 and then discarded.
type redirectGrant struct {
	accessCode  string
	countryCode string
}

type loginResponse struct {
	TokenInfo struct {
		AppToken string `json:"app_token"`
		UserID   string `json:"user_id"`
	} `json:"token_info"`
}

// Login runs the two-phase handshake: password -> redirect grant ->
// app token. Any failure is terminal; the caller must not retry within
// the same run.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Credential, error) {
	c.logger.Info("logging in to vendor account", zap.String("email", email))

	grant, err := c.requestAccessCode(ctx, email, password)
	if err != nil {
		return domain.Credential{}, err
	}

	c.logger.Info("access code obtained, exchanging for app token")
	return c.exchangeToken(ctx, grant)
}

// requestAccessCode posts the account password to the registration
// endpoint. Success is signalled by an HTTP redirect whose target URL
// carries access and country_code in its query string; the response body
// is irrelevant.
func (c *Client) requestAccessCode(ctx context.Context, email, password string) (redirectGrant, error) {
	endpoint := fmt.Sprintf("%s/registrations/%s/tokens", c.userBaseURL, url.PathEscape(email))

	form := url.Values{
		"state":        {"REDIRECTION"},
		"client_id":    {clientID},
		"redirect_uri": {redirectURI},
		"token":        {"access"},
		"password":     {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return redirectGrant{}, &TransportError{Op: "password exchange", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return redirectGrant{}, &TransportError{Op: "password exchange", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		return redirectGrant{}, &RateLimitedError{RetryAfter: resp.Header.Get("Retry-After")}
	}

	loc := resp.Header.Get("Location")
	if resp.StatusCode < 300 || resp.StatusCode >= 400 || loc == "" {
		if resp.StatusCode >= 400 {
			return redirectGrant{}, &TransportError{Op: "password exchange", Status: resp.StatusCode}
		}
		return redirectGrant{}, &ProtocolError{Step: "password exchange", Reason: "response is not a redirect"}
	}

	target, err := url.Parse(loc)
	if err != nil {
		return redirectGrant{}, &ProtocolError{Step: "password exchange", Reason: "unparseable Location header"}
	}

	query := target.Query()
	access := query.Get("access")
	if access == "" {
		return redirectGrant{}, &ProtocolError{Step: "password exchange", Reason: "redirect query lacks access"}
	}
	country := query.Get("country_code")
	if country == "" {
		return redirectGrant{}, &ProtocolError{Step: "password exchange", Reason: "redirect query lacks country_code"}
	}

	return redirectGrant{accessCode: access, countryCode: country}, nil
}

// exchangeToken trades the redirect grant for the app token at the
// session-login endpoint.
func (c *Client) exchangeToken(ctx context.Context, grant redirectGrant) (domain.Credential, error) {
	endpoint := c.accountBaseURL + "/v2/client/login"

	form := url.Values{
		"app_name":           {appName},
		"dn":                 {"account.huami.com,api-user.huami.com,api-watch.huami.com,api-analytics.huami.com,app-analytics.huami.com,api-mifit.huami.com"},
		"device_id":          {deviceID},
		"device_model":       {deviceModel},
		"app_version":        {appVersion},
		"allow_registration": {"false"},
		"third_name":         {"huami"},
		"grant_type":         {"access_token"},
		"country_code":       {grant.countryCode},
		"code":               {grant.accessCode},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Credential{}, &TransportError{Op: "token exchange", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Credential{}, &TransportError{Op: "token exchange", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Credential{}, &TransportError{Op: "token exchange", Status: resp.StatusCode}
	}

	var result loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Credential{}, &ProtocolError{Step: "token exchange", Reason: "response is not JSON"}
	}

	// Transport succeeded but the payload is unusable; continuing with
	// empty credentials would only fail later and more confusingly.
	if result.TokenInfo.AppToken == "" {
		return domain.Credential{}, &ProtocolError{Step: "token exchange", Reason: "response lacks token_info.app_token"}
	}
	if result.TokenInfo.UserID == "" {
		return domain.Credential{}, &ProtocolError{Step: "token exchange", Reason: "response lacks token_info.user_id"}
	}

	c.logger.Info("app token and user id obtained")
	return domain.Credential{
		AppToken: result.TokenInfo.AppToken,
		UserID:   result.TokenInfo.UserID,
	}, nil
}
