package render

import (
	"encoding/json"
	"fmt"

	"confluence-mcp/internal/confluence"
)

// jsonRenderer emits the client result with upstream field names.
type jsonRenderer struct{}

// searchJSON adds the query to a search result so JSON carries everything
// the Markdown view shows.
type searchJSON struct {
	CQL     string               `json:"cql"`
	Results []confluence.Content `json:"results"`
	Cursor  string               `json:"cursor,omitempty"`
	Next    string               `json:"next,omitempty"`
}

func marshal(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}

func (jsonRenderer) Space(space *confluence.Space) (string, error) {
	return marshal(space)
}

func (jsonRenderer) Spaces(res *confluence.SearchResult[confluence.Space]) (string, error) {
	return marshal(res)
}

func (jsonRenderer) Page(page *confluence.Page) (string, error) {
	return marshal(page)
}

func (jsonRenderer) Pages(_ string, res *confluence.SearchResult[confluence.Page]) (string, error) {
	return marshal(res)
}

func (jsonRenderer) Search(cql string, res *confluence.SearchResult[confluence.Content]) (string, error) {
	return marshal(searchJSON{CQL: cql, Results: res.Results, Cursor: res.Cursor, Next: res.Next})
}

func (jsonRenderer) Created(page *confluence.Page) (string, error) {
	return marshal(page)
}

func (jsonRenderer) Updated(page *confluence.Page) (string, error) {
	return marshal(page)
}
