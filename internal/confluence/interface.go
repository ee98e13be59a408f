package confluence

import "context"

// ConfluenceClient defines the Confluence operations exposed as tools
type ConfluenceClient interface {
	ListSpaces(ctx context.Context, opts ListSpacesOptions) (*SearchResult[Space], error)
	GetSpace(ctx context.Context, id string) (*Space, error)
	GetSpaceByKey(ctx context.Context, key string) (*Space, error)
	ListPages(ctx context.Context, opts ListPagesOptions) (*SearchResult[Page], error)
	GetPage(ctx context.Context, id string, includeBody bool) (*Page, error)
	SearchCQL(ctx context.Context, cql string, limit int, cursor string) (*SearchResult[Content], error)
	CreatePage(ctx context.Context, in CreatePageInput) (*Page, error)
	UpdatePage(ctx context.Context, in UpdatePageInput) (*Page, error)
}

// Ensure Client implements the interface
var _ ConfluenceClient = (*Client)(nil)
