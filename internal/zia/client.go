package zia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AuthEndpoint is the sign-in resource under the API base URL.
const AuthEndpoint = "authenticatedSession"

// sessionCookie is the cookie the admin API issues on successful sign-in.
const sessionCookie = "JSESSIONID"

const defaultTimeout = 30 * time.Second

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the API base, e.g. "https://admin.example.net/api/v1".
	BaseURL string
	// Username and Password authenticate the admin account.
	Username string
	Password string
	// APIKey is the static secret the sign-in token is derived from.
	APIKey string
	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
	// Budgets overrides per-operation call budgets. Operations not listed
	// get the vendor default of one call per second.
	Budgets map[Op]Budget
	// Logger receives request-level diagnostics. Defaults to the standard
	// logger.
	Logger *logrus.Entry

	// now is an injectable millisecond clock for credential derivation.
	now func() int64
}

// Client owns one authenticated session against the admin API. It derives
// sign-in credentials, captures the session token, and funnels every request
// through the per-operation rate limiter registry. One client drives one run;
// it is not safe for concurrent mutation of the same operation key and the
// engine never does so.
type Client struct {
	baseURL    string
	username   string
	password   string
	apiKey     string
	httpClient *http.Client
	limits     *Limits
	log        *logrus.Entry
	now        func() int64

	token     string
	closeOnce sync.Once
}

// loginRequest is the sign-in wire payload.
type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	APIKey    string `json:"apiKey"`
	Timestamp int64  `json:"timestamp"`
}

// NewClient creates an unauthenticated client. Call SignIn before any other
// method and Close at end of run.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.now == nil {
		cfg.now = func() int64 { return time.Now().UnixMilli() }
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limits:     NewLimits(cfg.Budgets),
		log:        cfg.Logger,
		now:        cfg.now,
	}
}

// SignIn derives fresh obfuscated credentials and opens the authenticated
// session. A non-200 response is fatal and never retried here: the derived
// key embeds its timestamp, so a blind retry would submit stale credentials.
func (c *Client) SignIn(ctx context.Context) error {
	// One clock reading for both fields: the service recomputes the key from
	// the submitted timestamp, so the two must come from the same instant.
	now := c.now()
	key, err := ObfuscateAPIKey(c.apiKey, now)
	if err != nil {
		return fmt.Errorf("derive credentials: %w", err)
	}

	body, err := json.Marshal(loginRequest{
		Username:  c.username,
		Password:  c.password,
		APIKey:    key,
		Timestamp: now,
	})
	if err != nil {
		return fmt.Errorf("marshal sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+AuthEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sign-in request: %w", err)
	}
	setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sign in rejected with status %d: %s: %w",
			resp.StatusCode, respBody, ErrAuth)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie {
			c.token = cookie.Value
			break
		}
	}
	if c.token == "" {
		return fmt.Errorf("sign in response carried no session token: %w", ErrAuth)
	}

	c.log.WithField("username", c.username).Debug("signed in")
	return nil
}

// Token returns the captured session token, empty before SignIn.
func (c *Client) Token() string {
	return c.token
}

// Close tears the session down exactly once. Safe to call whether or not
// downstream work succeeded.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		if c.token == "" {
			return
		}
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodDelete,
			c.baseURL+"/"+AuthEndpoint, http.NoBody)
		if reqErr != nil {
			err = fmt.Errorf("create sign-out request: %w", reqErr)
			return
		}
		setHeaders(req)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.token})

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			err = fmt.Errorf("sign out: %w", doErr)
			return
		}
		resp.Body.Close()
		c.token = ""
	})
	return err
}

// Departments fetches the departments reference list.
func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	var departments []Department
	if err := c.do(ctx, OpListDepartments, http.MethodGet, "departments", nil, nil, &departments); err != nil {
		return nil, fmt.Errorf("get departments: %w", err)
	}
	return departments, nil
}

// Groups fetches the groups reference list.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, OpListGroups, http.MethodGet, "groups", nil, nil, &groups); err != nil {
		return nil, fmt.Errorf("get groups: %w", err)
	}
	return groups, nil
}

// UsersPage fetches one page of users, optionally filtered by department name.
func (c *Client) UsersPage(ctx context.Context, dept string, page, pageSize int) (*Page, error) {
	query := url.Values{}
	if dept != "" {
		query.Set("dept", dept)
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var resp pagedResponse
	if err := c.do(ctx, OpListUsers, http.MethodGet, "users", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("get users page %d: %w", page, err)
	}

	return &Page{
		Number:     page,
		TotalPages: resp.TotalPages,
		Users:      resp.List,
	}, nil
}

// UpdateUser submits the full user record. The record must carry every
// attribute the service returned for it; unknown attributes ride along in
// UserRecord.Extra.
func (c *Client) UpdateUser(ctx context.Context, user *UserRecord) error {
	path := "users/" + strconv.Itoa(user.ID)
	if err := c.do(ctx, OpUpdateUser, http.MethodPut, path, nil, user, nil); err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return nil
}

// bulkDeleteRequest is the bulk-delete wire payload.
type bulkDeleteRequest struct {
	IDs []int `json:"ids"`
}

// BulkDelete submits one bulk-delete call. The caller is responsible for
// keeping chunks at or below the vendor ceiling of 400 ids.
func (c *Client) BulkDelete(ctx context.Context, ids []int) error {
	if err := c.do(ctx, OpBulkDelete, http.MethodPost, "users/bulkDelete", nil,
		bulkDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("bulk delete %d users: %w", len(ids), err)
	}
	return nil
}

// GetRaw reads an arbitrary GET resource and returns the raw JSON payload.
func (c *Client) GetRaw(ctx context.Context, resource string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, OpGetEndpoint, http.MethodGet, resource, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("get %s: %w", resource, err)
	}
	return raw, nil
}

// do acquires the operation's call slot, executes one request against the
// API, and decodes the response into out when out is non-nil.
func (c *Client) do(ctx context.Context, op Op, method, path string, query url.Values, body, out any) error {
	if err := c.limits.Acquire(ctx, op); err != nil {
		return fmt.Errorf("acquire %s slot: %w", op, err)
	}

	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	setHeaders(req)
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.token})
	}

	c.log.WithFields(logrus.Fields{"op": op, "method": method, "path": path}).Debug("api call")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if IsRateLimited(resp.StatusCode) {
			retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			c.limits.RecordRateLimitError(op, retryAfter)
		}
		return fmt.Errorf("%s %s failed with status %d: %s: %w",
			method, path, resp.StatusCode, respBody, WrapError(resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func setHeaders(req *http.Request) {
	req.Header.Set("content-type", "application/json")
	req.Header.Set("cache-control", "no-cache")
}
