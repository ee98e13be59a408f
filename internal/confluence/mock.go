package confluence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MockClient is an in-memory implementation of ConfluenceClient for tests.
// It enforces per-space title uniqueness and optimistic version checks the
// way Confluence Cloud does, and pages results with numeric cursors.
type MockClient struct {
	mu sync.Mutex

	Spaces      map[string]*Space // spaceID -> Space
	Pages       map[string]*Page  // pageID -> Page
	SearchHits  []Content         // returned by every SearchCQL call
	CreateCalls []string          // titles created (for assertions)
	UpdateCalls []string          // page ids updated
	SearchCalls []string          // CQL queries received

	// Err, when set, is returned by every operation.
	Err error
	// SearchErr, when set, is returned by SearchCQL only.
	SearchErr error

	nextID int
}

func NewMockClient() *MockClient {
	return &MockClient{
		Spaces: make(map[string]*Space),
		Pages:  make(map[string]*Page),
		nextID: 1000,
	}
}

// AddSpace registers a space and returns it.
func (m *MockClient) AddSpace(id, key, name string) *Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Space{ID: ID(id), Key: key, Name: name, Type: "global", Status: "current",
		URL: "https://example.atlassian.net/wiki/spaces/" + key}
	m.Spaces[id] = s
	return s
}

// AddPage registers a page at the given version and returns it.
func (m *MockClient) AddPage(id, spaceID, title, body string, version int) *Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &Page{
		ID:      ID(id),
		Title:   title,
		SpaceID: ID(spaceID),
		Status:  "current",
		Version: &Version{Number: version},
		Body:    &PageBody{Storage: &BodyValue{Representation: "storage", Value: body}},
		URL:     "https://example.atlassian.net/wiki/pages/" + id,
	}
	m.Pages[id] = p
	return p
}

func (m *MockClient) ListSpaces(ctx context.Context, opts ListSpacesOptions) (*SearchResult[Space], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var all []Space
	for _, id := range sortedKeys(m.Spaces) {
		s := m.Spaces[id]
		if opts.Type != "" && s.Type != opts.Type {
			continue
		}
		all = append(all, *s)
	}
	return paginate(all, opts.Limit, opts.Cursor)
}

func (m *MockClient) GetSpace(ctx context.Context, id string) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Spaces[id]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: opGetSpace, StatusCode: 404, Message: "resource not found; check the id or key provided"}
	}
	cp := *s
	return &cp, nil
}

func (m *MockClient) GetSpaceByKey(ctx context.Context, key string) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, s := range m.Spaces {
		if s.Key == key {
			cp := *s
			return &cp, nil
		}
	}
	return nil, &Error{Kind: KindNotFound, Op: opGetSpaceByKey, Message: fmt.Sprintf("space with key '%s' not found", key)}
}

func (m *MockClient) ListPages(ctx context.Context, opts ListPagesOptions) (*SearchResult[Page], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if opts.SpaceID != "" {
		if _, ok := m.Spaces[opts.SpaceID]; !ok {
			return nil, &Error{Kind: KindNotFound, Op: opListPages, StatusCode: 404, Message: "resource not found; check the id or key provided"}
		}
	}
	var all []Page
	for _, id := range sortedKeys(m.Pages) {
		p := m.Pages[id]
		if opts.SpaceID != "" && string(p.SpaceID) != opts.SpaceID {
			continue
		}
		if opts.Title != "" && p.Title != opts.Title {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		if opts.Depth == "root" && p.ParentID != "" {
			continue
		}
		cp := *p
		cp.Body = nil
		all = append(all, cp)
	}
	return paginate(all, opts.Limit, opts.Cursor)
}

func (m *MockClient) GetPage(ctx context.Context, id string, includeBody bool) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Pages[id]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: opGetPage, StatusCode: 404, Message: "resource not found; check the id or key provided"}
	}
	cp := *p
	if !includeBody {
		cp.Body = nil
	}
	return &cp, nil
}

func (m *MockClient) SearchCQL(ctx context.Context, cql string, limit int, cursor string) (*SearchResult[Content], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls = append(m.SearchCalls, cql)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return paginate(m.SearchHits, limit, cursor)
}

func (m *MockClient) CreatePage(ctx context.Context, in CreatePageInput) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.Spaces[in.SpaceID]; !ok {
		return nil, &Error{Kind: KindNotFound, Op: opCreatePage, StatusCode: 404, Message: "resource not found; check the id or key provided"}
	}
	title := NormalizeTitle(in.Title)
	for _, p := range m.Pages {
		if string(p.SpaceID) == in.SpaceID && p.Title == title {
			return nil, &Error{Kind: KindConflict, Op: opCreatePage, StatusCode: 409, Message: "a page with this title already exists in the space"}
		}
	}
	m.nextID++
	id := strconv.Itoa(m.nextID)
	p := &Page{
		ID:       ID(id),
		Title:    title,
		SpaceID:  ID(in.SpaceID),
		ParentID: ID(in.ParentID),
		Status:   "current",
		Version:  &Version{Number: 1},
		Body:     &PageBody{Storage: &BodyValue{Representation: "storage", Value: in.Body}},
		URL:      "https://example.atlassian.net/wiki/pages/" + id,
	}
	m.Pages[id] = p
	m.CreateCalls = append(m.CreateCalls, title)
	cp := *p
	return &cp, nil
}

func (m *MockClient) UpdatePage(ctx context.Context, in UpdatePageInput) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Pages[in.ID]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: opGetPage, StatusCode: 404, Message: "resource not found; check the id or key provided"}
	}
	if p.VersionNumber() != in.ExpectedVersion {
		return nil, &Error{
			Kind: KindVersionConflict,
			Op:   opUpdatePage,
			Message: fmt.Sprintf("page %s is at version %d but version %d was expected; re-fetch the page and retry",
				in.ID, p.VersionNumber(), in.ExpectedVersion),
		}
	}
	if in.Title != "" {
		p.Title = NormalizeTitle(in.Title)
	}
	msg := in.Message
	if msg == "" {
		msg = defaultVersionMessage
	}
	p.Version = &Version{Number: in.ExpectedVersion + 1, Message: msg}
	p.Body = &PageBody{Storage: &BodyValue{Representation: "storage", Value: in.Body}}
	m.UpdateCalls = append(m.UpdateCalls, in.ID)
	cp := *p
	return &cp, nil
}

// paginate slices items using a numeric offset as the opaque cursor.
func paginate[T any](items []T, limit int, cursor string) (*SearchResult[T], error) {
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, "c"))
		if err != nil || n < 0 {
			return nil, &Error{Kind: KindValidation, Op: "paginate", StatusCode: 400, Message: "request rejected by Confluence", Body: "invalid cursor"}
		}
		start = n
	}
	if limit <= 0 {
		limit = 25
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	res := &SearchResult[T]{Results: append([]T{}, items[start:end]...)}
	if end < len(items) {
		res.Cursor = "c" + strconv.Itoa(end)
	}
	return res, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ensure MockClient implements the interface
var _ ConfluenceClient = (*MockClient)(nil)
