// Package zepp is a client for the unofficial Huami/Zepp cloud API used
// by Mi Fit band firmware. The endpoints, form fields, and field
// semantics below are reverse-engineered from observed app traffic and
// may break without notice on vendor-side changes.
package zepp

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultUserBaseURL    = "https://api-user.huami.com"
	defaultAccountBaseURL = "https://account.huami.com"
	defaultAPIBaseURL     = "https://api-mifit.huami.com"

	// Identity constants the backend expects; lifted verbatim from
	// captured Mi Fit 4.0.9 traffic.
	clientID       = "HuaMi"
	appName        = "com.xiaomi.hm.health"
	appVersion     = "4.0.9"
	deviceID       = "02:00:00:00:00:00"
	deviceModel    = "android_phone"
	userAgent      = "Mi Fit/4.0.9 (iPhone; iOS 14.0; Scale/2.0)"
	redirectURI    = "https://s3-us-west-2.amazonaws.com/hm-registration/successsignin.html"
	defaultTimeout = 30 * time.Second
)

// Client performs the credential handshake and band-data retrieval.
// It holds no session state; every call is a single attempt with no
// retry, per the vendor's undocumented rate limiting.
type Client struct {
	logger *zap.Logger
	http   *http.Client

	userBaseURL    string
	accountBaseURL string
	apiBaseURL     string

	loc *time.Location
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the three vendor hosts (tests point them at a
// local server).
func WithBaseURLs(user, account, api string) Option {
	return func(c *Client) {
		c.userBaseURL = user
		c.accountBaseURL = account
		c.apiBaseURL = api
	}
}

// WithHTTPClient replaces the underlying HTTP client. The replacement
// must not follow redirects: phase 1 of the handshake delivers its
// output in the Location header of an unfollowed redirect.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a vendor API client that formats sleep timestamps in
// loc.
func NewClient(logger *zap.Logger, loc *time.Location, opts ...Option) *Client {
	c := &Client{
		logger:         logger,
		userBaseURL:    defaultUserBaseURL,
		accountBaseURL: defaultAccountBaseURL,
		apiBaseURL:     defaultAPIBaseURL,
		loc:            loc,
		http: &http.Client{
			Timeout: defaultTimeout,
			// The login protocol signals success via a redirect whose
			// target URL carries the token in its query string. The
			// redirect target itself is inert; following it would
			// discard the token.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
