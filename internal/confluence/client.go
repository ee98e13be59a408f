// Package confluence wraps the Confluence Cloud REST API. Spaces and pages go
// through the v2 API; CQL search still needs the v1 content search endpoint.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"confluence-mcp/pkg/logger"
)

const (
	// DefaultBaseURL is the Confluence Cloud site this server talks to.
	DefaultBaseURL = "https://aofoundation.atlassian.net"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second

	apiV2 = "/wiki/api/v2"
	apiV1 = "/wiki/rest/api"

	defaultVersionMessage = "Updated via MCP"
	maxErrorBody          = 64 << 10
)

// AuthMethod decorates outgoing requests with credentials.
type AuthMethod interface {
	Apply(req *http.Request)
}

// BasicAuth authenticates with an Atlassian account email and API token.
type BasicAuth struct {
	Email string
	Token string
}

// Apply implements AuthMethod.
func (b BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(b.Email, b.Token)
}

// String never includes the token.
func (b BasicAuth) String() string {
	return fmt.Sprintf("BasicAuth{Email: %q, Token: ****}", b.Email)
}

// Client talks to the Confluence Cloud REST API of one site.
type Client struct {
	baseURL    string
	auth       AuthMethod
	httpClient *http.Client
	logger     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// NewClient builds a client for the site at baseURL. Both the site root
// (https://x.atlassian.net) and the wiki root (.../wiki) are accepted.
func NewClient(baseURL string, auth AuthMethod, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    normalizeBaseURL(baseURL),
		auth:       auth,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	return strings.TrimSuffix(trimmed, "/wiki")
}

// BaseURL returns the normalized site URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListSpaces returns one page of spaces visible to the account.
func (c *Client) ListSpaces(ctx context.Context, opts ListSpacesOptions) (*SearchResult[Space], error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}

	var env listEnvelope[Space]
	if err := c.do(ctx, opListSpaces, http.MethodGet, apiV2+"/spaces", q, nil, &env); err != nil {
		return nil, err
	}
	for i := range env.Results {
		c.decorateSpace(&env.Results[i])
	}
	return env.result(), nil
}

// GetSpace fetches a space by its numeric id.
func (c *Client) GetSpace(ctx context.Context, id string) (*Space, error) {
	var space Space
	if err := c.do(ctx, opGetSpace, http.MethodGet, apiV2+"/spaces/"+url.PathEscape(id), nil, nil, &space); err != nil {
		return nil, err
	}
	c.decorateSpace(&space)
	return &space, nil
}

// GetSpaceByKey resolves a space key such as TEAM. The v2 API only filters
// the list endpoint by key, so zero matches, or a match on another key, is
// reported as NotFound.
func (c *Client) GetSpaceByKey(ctx context.Context, key string) (*Space, error) {
	// The keys filter takes a comma-separated list.
	if key == "" || strings.Contains(key, ",") {
		return nil, &Error{
			Kind:    KindValidation,
			Op:      opGetSpaceByKey,
			Message: fmt.Sprintf("invalid space key '%s'", key),
		}
	}
	q := url.Values{}
	q.Set("keys", key)
	q.Set("limit", "1")

	var env listEnvelope[Space]
	if err := c.do(ctx, opGetSpaceByKey, http.MethodGet, apiV2+"/spaces", q, nil, &env); err != nil {
		return nil, err
	}
	if len(env.Results) == 0 || env.Results[0].Key != key {
		return nil, &Error{
			Kind:    KindNotFound,
			Op:      opGetSpaceByKey,
			Message: fmt.Sprintf("space with key '%s' not found", key),
		}
	}
	space := env.Results[0]
	c.decorateSpace(&space)
	return &space, nil
}

// ListPages returns one page of pages, scoped to a space when SpaceID is set.
func (c *Client) ListPages(ctx context.Context, opts ListPagesOptions) (*SearchResult[Page], error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	if opts.Title != "" {
		q.Set("title", opts.Title)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}

	path := apiV2 + "/pages"
	if opts.SpaceID != "" {
		path = apiV2 + "/spaces/" + url.PathEscape(opts.SpaceID) + "/pages"
		if opts.Depth != "" {
			q.Set("depth", opts.Depth)
		}
	}

	var env listEnvelope[Page]
	if err := c.do(ctx, opListPages, http.MethodGet, path, q, nil, &env); err != nil {
		return nil, err
	}
	for i := range env.Results {
		c.decoratePage(&env.Results[i])
	}
	return env.result(), nil
}

// GetPage fetches a page, with its storage body when includeBody is set.
func (c *Client) GetPage(ctx context.Context, id string, includeBody bool) (*Page, error) {
	var q url.Values
	if includeBody {
		q = url.Values{}
		q.Set("body-format", "storage")
	}

	var page Page
	if err := c.do(ctx, opGetPage, http.MethodGet, apiV2+"/pages/"+url.PathEscape(id), q, nil, &page); err != nil {
		return nil, err
	}
	c.decoratePage(&page)
	return &page, nil
}

// SearchCQL runs a CQL query. The query is passed through unmodified.
func (c *Client) SearchCQL(ctx context.Context, cql string, limit int, cursor string) (*SearchResult[Content], error) {
	q := url.Values{}
	q.Set("cql", cql)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("expand", "space,version")
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var env listEnvelope[Content]
	if err := c.do(ctx, opSearch, http.MethodGet, apiV1+"/content/search", q, nil, &env); err != nil {
		return nil, err
	}
	for i := range env.Results {
		c.decorateContent(&env.Results[i])
	}
	return env.result(), nil
}

type bodyPayload struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

type createPagePayload struct {
	SpaceID  string      `json:"spaceId"`
	Status   string      `json:"status"`
	Title    string      `json:"title"`
	ParentID string      `json:"parentId,omitempty"`
	Body     bodyPayload `json:"body"`
}

// CreatePage creates a page whose body is storage XHTML. Confluence enforces
// title uniqueness per space; a collision is reported as Conflict.
func (c *Client) CreatePage(ctx context.Context, in CreatePageInput) (*Page, error) {
	payload := createPagePayload{
		SpaceID:  in.SpaceID,
		Status:   "current",
		Title:    NormalizeTitle(in.Title),
		ParentID: in.ParentID,
		Body:     bodyPayload{Representation: "storage", Value: in.Body},
	}

	c.debugf("Creating page '%s' in space %s", payload.Title, in.SpaceID)

	var page Page
	if err := c.do(ctx, opCreatePage, http.MethodPost, apiV2+"/pages", nil, payload, &page); err != nil {
		return nil, err
	}
	c.decoratePage(&page)
	return &page, nil
}

type updatePagePayload struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Title   string      `json:"title"`
	SpaceID string      `json:"spaceId,omitempty"`
	Body    bodyPayload `json:"body"`
	Version struct {
		Number  int    `json:"number"`
		Message string `json:"message,omitempty"`
	} `json:"version"`
}

// UpdatePage replaces a page body. ExpectedVersion must match the version
// Confluence currently holds; otherwise VersionConflict is returned and
// nothing is written. There is no automatic retry.
func (c *Client) UpdatePage(ctx context.Context, in UpdatePageInput) (*Page, error) {
	current, err := c.GetPage(ctx, in.ID, false)
	if err != nil {
		return nil, err
	}

	if current.VersionNumber() != in.ExpectedVersion {
		return nil, &Error{
			Kind: KindVersionConflict,
			Op:   opUpdatePage,
			Message: fmt.Sprintf("page %s is at version %d but version %d was expected; re-fetch the page and retry",
				in.ID, current.VersionNumber(), in.ExpectedVersion),
		}
	}

	payload := updatePagePayload{
		ID:      in.ID,
		Status:  "current",
		Title:   current.Title,
		SpaceID: string(current.SpaceID),
		Body:    bodyPayload{Representation: "storage", Value: in.Body},
	}
	if in.Title != "" {
		payload.Title = NormalizeTitle(in.Title)
	}
	payload.Version.Number = in.ExpectedVersion + 1
	payload.Version.Message = in.Message
	if payload.Version.Message == "" {
		payload.Version.Message = defaultVersionMessage
	}

	c.debugf("Updating page %s from version %d", in.ID, in.ExpectedVersion)

	var page Page
	if err := c.do(ctx, opUpdatePage, http.MethodPut, apiV2+"/pages/"+url.PathEscape(in.ID), nil, payload, &page); err != nil {
		return nil, err
	}
	c.decoratePage(&page)
	return &page, nil
}

// NormalizeTitle trims and NFC-normalizes a page title so that visually
// identical titles hit the same uniqueness key upstream.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

// listEnvelope is the shared shape of v1 search and v2 list responses.
type listEnvelope[T any] struct {
	Results []T   `json:"results"`
	Links   Links `json:"_links"`
}

func (e *listEnvelope[T]) result() *SearchResult[T] {
	results := e.Results
	if results == nil {
		results = []T{}
	}
	return &SearchResult[T]{
		Results: results,
		Cursor:  cursorFromNext(e.Links.Next),
		Next:    e.Links.Next,
	}
}

// cursorFromNext pulls the opaque cursor out of a _links.next URL.
func cursorFromNext(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload interface{}, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, Message: "failed to marshal request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Kind: KindValidation, Op: op, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth.Apply(req)
	}

	c.debugf("%s %s", method, path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.debugf("%s %s -> %d in %s", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			return transportError(op, readErr)
		}
		return statusError(op, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &Error{Kind: KindUpstream, Op: op, Message: "failed to decode response", Err: err}
	}
	return nil
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(format, args...)
	}
}

// webURL resolves a _links.webui path against the site.
func (c *Client) webURL(webui, fallback string) string {
	if webui != "" {
		return c.baseURL + "/wiki" + webui
	}
	return c.baseURL + "/wiki" + fallback
}

func (c *Client) decorateSpace(s *Space) {
	s.URL = c.webURL(s.Links.WebUI, "/spaces/"+s.Key)
}

func (c *Client) decoratePage(p *Page) {
	p.URL = c.webURL(p.Links.WebUI, "/pages/"+string(p.ID))
}

func (c *Client) decorateContent(ct *Content) {
	ct.URL = c.webURL(ct.Links.WebUI, "/pages/"+string(ct.ID))
}
