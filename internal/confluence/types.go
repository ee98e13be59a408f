package confluence

import (
	"bytes"
	"encoding/json"
)

// ID is an opaque Confluence identifier. The v2 API documents ids as
// strings but some endpoints still emit bare integers, so both decode.
type ID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Links mirrors the _links object returned by both API generations.
type Links struct {
	WebUI  string `json:"webui,omitempty"`
	EditUI string `json:"editui,omitempty"`
	TinyUI string `json:"tinyui,omitempty"`
	Base   string `json:"base,omitempty"`
	Next   string `json:"next,omitempty"`
}

// Space is a top-level container of pages.
type Space struct {
	ID          ID                `json:"id"`
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Status      string            `json:"status"`
	HomepageID  ID                `json:"homepageId,omitempty"`
	Description *SpaceDescription `json:"description,omitempty"`
	Links       Links             `json:"_links,omitzero"`
	URL         string            `json:"url,omitempty"`
}

// SpaceDescription holds a space description in plain text.
type SpaceDescription struct {
	Plain *BodyValue `json:"plain,omitempty"`
}

// BodyValue is one representation of a page body.
type BodyValue struct {
	Representation string `json:"representation,omitempty"`
	Value          string `json:"value"`
}

// PageBody holds the page content in storage format.
type PageBody struct {
	Storage *BodyValue `json:"storage,omitempty"`
}

// Version is the optimistic-concurrency token of a page.
type Version struct {
	Number    int    `json:"number"`
	Message   string `json:"message,omitempty"`
	MinorEdit bool   `json:"minorEdit,omitempty"`
	AuthorID  string `json:"authorId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Page is a versioned document belonging to a space.
type Page struct {
	ID         ID        `json:"id"`
	Title      string    `json:"title"`
	SpaceID    ID        `json:"spaceId"`
	ParentID   ID        `json:"parentId,omitempty"`
	ParentType string    `json:"parentType,omitempty"`
	Status     string    `json:"status"`
	AuthorID   string    `json:"authorId,omitempty"`
	CreatedAt  string    `json:"createdAt,omitempty"`
	Version    *Version  `json:"version,omitempty"`
	Body       *PageBody `json:"body,omitempty"`
	Links      Links     `json:"_links,omitzero"`
	URL        string    `json:"url,omitempty"`
}

// VersionNumber returns the page version or 0 when the upstream omitted it.
func (p *Page) VersionNumber() int {
	if p == nil || p.Version == nil {
		return 0
	}
	return p.Version.Number
}

// StorageBody returns the storage-format body, or "" when not requested.
func (p *Page) StorageBody() string {
	if p == nil || p.Body == nil || p.Body.Storage == nil {
		return ""
	}
	return p.Body.Storage.Value
}

// ContentSpace is the expanded space reference on a CQL hit.
type ContentSpace struct {
	ID   ID     `json:"id,omitempty"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// Content is a single CQL search hit (page, blogpost, attachment, space...).
type Content struct {
	ID      ID            `json:"id"`
	Type    string        `json:"type"`
	Status  string        `json:"status"`
	Title   string        `json:"title"`
	Space   *ContentSpace `json:"space,omitempty"`
	Version *Version      `json:"version,omitempty"`
	Links   Links         `json:"_links,omitzero"`
	URL     string        `json:"url,omitempty"`
}

// SearchResult is one page of a list or search call. Cursor is the opaque
// token to submit on the next call; it is empty when there is nothing more.
type SearchResult[T any] struct {
	Results []T    `json:"results"`
	Cursor  string `json:"cursor,omitempty"`
	Next    string `json:"next,omitempty"`
}

// HasMore reports whether a continuation cursor was returned.
func (r *SearchResult[T]) HasMore() bool {
	return r != nil && r.Cursor != ""
}

// ListSpacesOptions filters and pages confluence_list_spaces.
type ListSpacesOptions struct {
	Limit  int
	Cursor string
	Type   string
}

// ListPagesOptions filters and pages page listings. SpaceID scopes the
// listing to one space; Depth only applies when SpaceID is set.
type ListPagesOptions struct {
	SpaceID string
	Limit   int
	Cursor  string
	Title   string
	Status  string
	Depth   string
}

// CreatePageInput is the payload for CreatePage. Body is storage XHTML.
type CreatePageInput struct {
	SpaceID  string
	Title    string
	Body     string
	ParentID string
}

// UpdatePageInput is the payload for UpdatePage. ExpectedVersion is the
// version the caller last read; Title keeps the current title when empty.
type UpdatePageInput struct {
	ID              string
	Body            string
	ExpectedVersion int
	Title           string
	Message         string
}
