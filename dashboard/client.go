// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Client talks to a Homarr-compatible dashboard using its tRPC-flavored HTTP
// API. The session cookie established by Login lives in the client's cookie
// jar, so a single Client is meant to be owned by a single adapter instance
// and passed explicitly to whoever needs it.
type Client struct {
	hc      *http.Client
	baseURL string
}

var _ Service = (*Client)(nil)

// New returns a Client for the dashboard at the specified base URL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create cookie jar: %w", err)
	}
	return &Client{
		hc:      &http.Client{Jar: jar},
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// NewWithHTTPClient returns a Client using the specified HTTP client; this
// is the injection point for httptest-backed specs. The HTTP client should
// carry a cookie jar, as the dashboard session is cookie-based.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{hc: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// trpcEnvelope is the request wrapper the dashboard's RPC endpoints expect.
type trpcEnvelope struct {
	JSON any `json:"json"`
}

// trpcResponse is the response wrapper the dashboard's RPC endpoints return;
// the payload proper hides at result.data.json.
type trpcResponse struct {
	Result struct {
		Data struct {
			JSON json.RawMessage `json:"json"`
		} `json:"data"`
	} `json:"result"`
}

// query performs a tRPC query (GET with the input serialized into the URL),
// decoding the result payload into out unless out is nil.
func (c *Client) query(ctx context.Context, proc string, input any, out any) error {
	procurl := c.baseURL + "/api/trpc/" + proc
	if input != nil {
		envelope, err := json.Marshal(trpcEnvelope{JSON: input})
		if err != nil {
			return fmt.Errorf("cannot marshal %s input: %w", proc, err)
		}
		procurl += "?input=" + url.QueryEscape(string(envelope))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, procurl, nil)
	if err != nil {
		return fmt.Errorf("cannot create %s request: %w", proc, err)
	}
	return c.do(proc, req, out)
}

// mutate performs a tRPC mutation (POST with an enveloped JSON body),
// decoding the result payload into out unless out is nil.
func (c *Client) mutate(ctx context.Context, proc string, payload any, out any) error {
	body, err := json.Marshal(trpcEnvelope{JSON: payload})
	if err != nil {
		return fmt.Errorf("cannot marshal %s payload: %w", proc, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/trpc/"+proc, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cannot create %s request: %w", proc, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(proc, req, out)
}

// do runs the request and unwraps the tRPC response envelope.
func (c *Client) do(proc string, req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", proc, err)
	}
	defer resp.Body.Close()
	contents, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s failed: %w", proc, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", proc, ErrNotFound)
		}
		if resp.StatusCode == http.StatusConflict {
			return fmt.Errorf("%s: %w", proc, ErrAlreadyExists)
		}
		return fmt.Errorf("%s failed with status %d: %s",
			proc, resp.StatusCode, snippet(contents))
	}
	if out == nil {
		return nil
	}
	var envelope trpcResponse
	if err := json.Unmarshal(contents, &envelope); err != nil {
		return fmt.Errorf("%s returned an undecodable response: %w", proc, err)
	}
	if err := json.Unmarshal(envelope.Result.Data.JSON, out); err != nil {
		return fmt.Errorf("%s returned an unexpected payload: %w", proc, err)
	}
	return nil
}

// snippet keeps error messages readable when the dashboard responds with a
// whole HTML error page.
func snippet(contents []byte) string {
	const maxlen = 256
	s := strings.TrimSpace(string(contents))
	if len(s) > maxlen {
		s = s[:maxlen] + "…"
	}
	return s
}

// CurrentStep queries the dashboard-reported onboarding step.
func (c *Client) CurrentStep(ctx context.Context) (Step, error) {
	var step Step
	if err := c.query(ctx, "onboard.currentStep", nil, &step); err != nil {
		return Step{}, err
	}
	return step, nil
}

// NextStep asks the dashboard to advance onboarding to the next step.
func (c *Client) NextStep(ctx context.Context) error {
	return c.mutate(ctx, "onboard.nextStep", struct{}{}, nil)
}

// CreateAdminUser submits the initial administrator account credentials,
// with the usual duplicated password confirmation.
func (c *Client) CreateAdminUser(ctx context.Context, username, password string) error {
	return c.mutate(ctx, "user.initUser", struct {
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}{username, password, password}, nil)
}

// InitServerSettings submits the privacy/analytics/crawling settings bundle.
func (c *Client) InitServerSettings(ctx context.Context, settings ServerSettings) error {
	return c.mutate(ctx, "serverSettings.initSettings", settings, nil)
}

// Login fetches a CSRF token and then establishes the credentialed session;
// the session cookie ends up in the client's cookie jar. The dashboard
// answers the credentials callback with a redirect, which the HTTP client
// transparently follows.
func (c *Client) Login(ctx context.Context, username, password string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/auth/csrf", nil)
	if err != nil {
		return fmt.Errorf("cannot create csrf request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("csrf token handshake failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return fmt.Errorf("csrf token handshake failed with status %d", resp.StatusCode)
	}
	var csrf struct {
		CSRFToken string `json:"csrfToken"`
	}
	err = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&csrf)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("csrf token handshake failed: %w", err)
	}
	form := url.Values{
		"csrfToken": {csrf.CSRFToken},
		"name":      {username},
		"password":  {password},
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/auth/callback/credentials",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("cannot create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	return nil
}

// BoardByName returns the named board, or ErrNotFound.
func (c *Client) BoardByName(ctx context.Context, name string) (Board, error) {
	var board Board
	err := c.query(ctx, "board.getBoardByName", struct {
		Name string `json:"name"`
	}{name}, &board)
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

// CreateBoard creates a new board and returns its identifier.
func (c *Client) CreateBoard(ctx context.Context, name string, columnCount int, public bool) (string, error) {
	var created struct {
		BoardID string `json:"boardId"`
	}
	err := c.mutate(ctx, "board.createBoard", struct {
		Name        string `json:"name"`
		ColumnCount int    `json:"columnCount"`
		IsPublic    bool   `json:"isPublic"`
	}{name, columnCount, public}, &created)
	if err != nil {
		return "", err
	}
	return created.BoardID, nil
}

// CreateApp creates a dashboard app and returns its identifier.
func (c *Client) CreateApp(ctx context.Context, app App) (string, error) {
	var created struct {
		AppID string `json:"appId"`
		ID    string `json:"id"`
	}
	err := c.mutate(ctx, "app.create", struct {
		App
		PingURL *string `json:"pingUrl"`
	}{App: app}, &created)
	if err != nil {
		return "", err
	}
	if created.AppID != "" {
		return created.AppID, nil
	}
	return created.ID, nil
}

// boardItem is one tile in a board.saveBoard payload.
type boardItem struct {
	ID              string            `json:"id"`
	Kind            string            `json:"kind"`
	AppID           string            `json:"appId"`
	Options         struct{}          `json:"options"`
	Layouts         []boardItemLayout `json:"layouts"`
	IntegrationIDs  []string          `json:"integrationIds"`
	AdvancedOptions struct {
		CustomCSSClasses []string `json:"customCssClasses"`
	} `json:"advancedOptions"`
}

// boardItemLayout places a tile within one board layout and section.
type boardItemLayout struct {
	LayoutID  string `json:"layoutId"`
	SectionID string `json:"sectionId"`
	TilePlacement
}

// PlaceTile saves the board with a single app tile added at the specified
// placement, into the board's first section and layout.
func (c *Client) PlaceTile(ctx context.Context, board Board, appID string, placement TilePlacement) error {
	var sectionID, layoutID string
	if len(board.Sections) > 0 {
		sectionID = board.Sections[0].ID
	}
	if len(board.Layouts) > 0 {
		layoutID = board.Layouts[0].ID
	}
	item := boardItem{
		ID:    uuid.NewString(),
		Kind:  "app",
		AppID: appID,
		Layouts: []boardItemLayout{{
			LayoutID:      layoutID,
			SectionID:     sectionID,
			TilePlacement: placement,
		}},
		IntegrationIDs: []string{},
	}
	item.AdvancedOptions.CustomCSSClasses = []string{}
	return c.mutate(ctx, "board.saveBoard", struct {
		ID           string      `json:"id"`
		Sections     []Section   `json:"sections"`
		Items        []boardItem `json:"items"`
		Integrations []string    `json:"integrations"`
	}{board.ID, board.Sections, []boardItem{item}, []string{}}, nil)
}

// SetHomeBoard makes the specified board the home board.
func (c *Client) SetHomeBoard(ctx context.Context, boardID string) error {
	return c.mutate(ctx, "board.setHomeBoard", struct {
		ID string `json:"id"`
	}{boardID}, nil)
}

// ChangeColorScheme applies the specified color scheme.
func (c *Client) ChangeColorScheme(ctx context.Context, scheme string) error {
	return c.mutate(ctx, "user.changeColorScheme", struct {
		ColorScheme string `json:"colorScheme"`
	}{scheme}, nil)
}
