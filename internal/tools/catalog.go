package tools

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/mark3labs/mcp-go/mcp"

	"confluence-mcp/internal/confluence"
	"confluence-mcp/internal/markdown"
	"confluence-mcp/internal/render"
)

const (
	defaultLimit   = 25
	maxListLimit   = 250
	maxSearchLimit = 100
)

func outputFormatOption() mcp.ToolOption {
	return mcp.WithString("output_format",
		mcp.Description("Response format: 'markdown' for human-readable text or 'json' for the raw API fields"),
		mcp.Enum("markdown", "json"),
		mcp.DefaultString("markdown"),
	)
}

func limitOption(upper int) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return"),
		mcp.Min(1),
		mcp.Max(float64(upper)),
		mcp.DefaultNumber(defaultLimit),
	)
}

func cursorOption() mcp.ToolOption {
	return mcp.WithString("cursor",
		mcp.Description("Pagination cursor returned by a previous call"),
	)
}

func bodyFormatOption() mcp.ToolOption {
	return mcp.WithString("body_format",
		mcp.Description("How to read body: 'storage' for Confluence XHTML, 'markdown' to convert from Markdown, 'auto' to treat bodies starting with '<' as storage"),
		mcp.Enum("auto", "storage", "markdown"),
		mcp.DefaultString("auto"),
	)
}

func readOnly(title string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithTitleAnnotation(title),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	}
}

func newTool(name, description string, annotations []mcp.ToolOption, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	all = append(all, annotations...)
	return mcp.NewTool(name, all...)
}

func catalog() []tool {
	return []tool{
		{
			def: newTool("confluence_list_spaces",
				"List Confluence spaces visible to the configured account, one page at a time.",
				readOnly("List Confluence Spaces"),
				limitOption(maxListLimit),
				cursorOption(),
				mcp.WithString("type",
					mcp.Description("Only return spaces of this type"),
					mcp.Enum("global", "personal"),
				),
				outputFormatOption(),
			),
			run: listSpaces,
		},
		{
			def: newTool("confluence_get_space",
				"Get a Confluence space by its numeric ID.",
				readOnly("Get Confluence Space by ID"),
				mcp.WithString("id", mcp.Required(), mcp.Description("The space ID")),
				outputFormatOption(),
			),
			run: getSpace,
		},
		{
			def: newTool("confluence_get_space_by_key",
				"Get a Confluence space by its key, for example 'TEAM'.",
				readOnly("Get Confluence Space by Key"),
				mcp.WithString("key", mcp.Required(), mcp.Description("The space key")),
				outputFormatOption(),
			),
			run: getSpaceByKey,
		},
		{
			def: newTool("confluence_list_pages",
				"List Confluence pages, optionally limited to one space, one page of results at a time.",
				readOnly("List Confluence Pages"),
				mcp.WithString("spaceId", mcp.Description("Only return pages in this space")),
				limitOption(maxListLimit),
				cursorOption(),
				mcp.WithString("title", mcp.Description("Only return pages with exactly this title")),
				mcp.WithString("status",
					mcp.Description("Only return pages with this status"),
					mcp.Enum(pageStatuses...),
					mcp.DefaultString("current"),
				),
				outputFormatOption(),
			),
			run: listPages,
		},
		{
			def: newTool("confluence_get_page",
				"Get a Confluence page by ID. In markdown output the body is converted from storage format; macros appear as placeholders.",
				readOnly("Get Confluence Page"),
				mcp.WithString("id", mcp.Required(), mcp.Description("The page ID")),
				mcp.WithBoolean("include_body",
					mcp.Description("Include the page body"),
					mcp.DefaultBool(true),
				),
				outputFormatOption(),
			),
			run: getPage,
		},
		{
			def: newTool("confluence_get_pages_in_space",
				"List the pages of one Confluence space, either all pages or only the root pages.",
				readOnly("Get Pages in Space"),
				mcp.WithString("spaceId", mcp.Required(), mcp.Description("The space ID")),
				limitOption(maxListLimit),
				cursorOption(),
				mcp.WithString("depth",
					mcp.Description("'all' for every page, 'root' for top-level pages only"),
					mcp.Enum("all", "root"),
					mcp.DefaultString("all"),
				),
				outputFormatOption(),
			),
			run: getPagesInSpace,
		},
		{
			def: newTool("confluence_search",
				"Search Confluence content with a CQL query such as: type = page AND space = TEAM AND text ~ \"roadmap\".",
				readOnly("Search Confluence"),
				mcp.WithString("cql", mcp.Required(), mcp.Description("The CQL query, passed to Confluence unmodified")),
				limitOption(maxSearchLimit),
				cursorOption(),
				outputFormatOption(),
			),
			run: search,
		},
		{
			def: newTool("confluence_create_page",
				"Create a page in a Confluence space. Titles must be unique within a space.",
				[]mcp.ToolOption{
					mcp.WithTitleAnnotation("Create Confluence Page"),
					mcp.WithReadOnlyHintAnnotation(false),
					mcp.WithDestructiveHintAnnotation(false),
					mcp.WithIdempotentHintAnnotation(false),
					mcp.WithOpenWorldHintAnnotation(true),
				},
				mcp.WithString("spaceId", mcp.Required(), mcp.Description("The space ID to create the page in")),
				mcp.WithString("title", mcp.Required(), mcp.Description("The page title")),
				mcp.WithString("body", mcp.Required(), mcp.Description("The page body as storage XHTML or Markdown")),
				mcp.WithString("parentId", mcp.Description("Create the page under this parent page")),
				bodyFormatOption(),
				outputFormatOption(),
			),
			run: createPage,
		},
		{
			def: newTool("confluence_update_page",
				"Replace the body of a Confluence page. expectedVersion must be the version you last read; if the page changed since, the update fails with VersionConflict.",
				[]mcp.ToolOption{
					mcp.WithTitleAnnotation("Update Confluence Page"),
					mcp.WithReadOnlyHintAnnotation(false),
					mcp.WithDestructiveHintAnnotation(true),
					mcp.WithIdempotentHintAnnotation(false),
					mcp.WithOpenWorldHintAnnotation(true),
				},
				mcp.WithString("id", mcp.Required(), mcp.Description("The page ID")),
				mcp.WithString("body", mcp.Required(), mcp.Description("The new page body as storage XHTML or Markdown")),
				mcp.WithNumber("expectedVersion",
					mcp.Required(),
					mcp.Description("The current version number of the page"),
					mcp.Min(1),
				),
				mcp.WithString("title", mcp.Description("New title; the current title is kept when omitted")),
				mcp.WithString("version_message", mcp.Description("Message recorded with the new version")),
				bodyFormatOption(),
				outputFormatOption(),
			),
			run: updatePage,
		},
	}
}

var pageStatuses = []string{"current", "archived", "draft", "trashed", "deleted"}

func renderer(a args) (render.Renderer, error) {
	s, err := a.optionalString("output_format", "")
	if err != nil {
		return nil, err
	}
	f, err := render.ParseFormat(s)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	return render.New(f), nil
}

// storageBody returns body as storage XHTML according to body_format.
func storageBody(a args, body string) (string, error) {
	format, err := a.enum("body_format", "auto", "auto", "storage", "markdown")
	if err != nil {
		return "", err
	}
	if format == "auto" {
		format = "markdown"
		if looksLikeStorage(body) {
			format = "storage"
		}
	}
	if format == "markdown" {
		return markdown.ToStorage(body), nil
	}
	return body, nil
}

func looksLikeStorage(body string) bool {
	trimmed := strings.TrimLeftFunc(body, unicode.IsSpace)
	return strings.HasPrefix(trimmed, "<")
}

func listSpaces(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	limit, err := a.integer("limit", defaultLimit, 1, maxListLimit)
	if err != nil {
		return "", err
	}
	cursor, err := a.optionalString("cursor", "")
	if err != nil {
		return "", err
	}
	spaceType, err := a.optionalString("type", "")
	if err != nil {
		return "", err
	}
	if spaceType != "" {
		if spaceType, err = a.enum("type", "", "global", "personal"); err != nil {
			return "", err
		}
	}

	res, err := d.client.ListSpaces(ctx, confluence.ListSpacesOptions{Limit: limit, Cursor: cursor, Type: spaceType})
	if err != nil {
		return "", err
	}
	return r.Spaces(res)
}

func getSpace(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	id, err := a.identifier("id")
	if err != nil {
		return "", err
	}

	space, err := d.client.GetSpace(ctx, id)
	if err != nil {
		return "", err
	}
	return r.Space(space)
}

func getSpaceByKey(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	key, err := a.requiredString("key")
	if err != nil {
		return "", err
	}

	key = strings.TrimSpace(key)
	if strings.ContainsAny(key, ", ") {
		return "", invalid("key '%s' must be a single space key", key)
	}

	space, err := d.client.GetSpaceByKey(ctx, key)
	if err != nil {
		return "", err
	}
	return r.Space(space)
}

func pageListOptions(a args) (confluence.ListPagesOptions, error) {
	var opts confluence.ListPagesOptions
	var err error
	if opts.Limit, err = a.integer("limit", defaultLimit, 1, maxListLimit); err != nil {
		return opts, err
	}
	if opts.Cursor, err = a.optionalString("cursor", ""); err != nil {
		return opts, err
	}
	return opts, nil
}

func listPages(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	opts, err := pageListOptions(a)
	if err != nil {
		return "", err
	}
	if opts.SpaceID, err = a.optionalIdentifier("spaceId"); err != nil {
		return "", err
	}
	if opts.Title, err = a.optionalString("title", ""); err != nil {
		return "", err
	}
	if opts.Status, err = a.enum("status", "current", pageStatuses...); err != nil {
		return "", err
	}

	res, err := d.client.ListPages(ctx, opts)
	if err != nil {
		return "", err
	}
	return r.Pages("Confluence Pages", res)
}

func getPage(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	id, err := a.identifier("id")
	if err != nil {
		return "", err
	}
	includeBody, err := a.boolean("include_body", true)
	if err != nil {
		return "", err
	}

	page, err := d.client.GetPage(ctx, id, includeBody)
	if err != nil {
		return "", err
	}
	return r.Page(page)
}

func getPagesInSpace(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	opts, err := pageListOptions(a)
	if err != nil {
		return "", err
	}
	if opts.SpaceID, err = a.identifier("spaceId"); err != nil {
		return "", err
	}
	if opts.Depth, err = a.enum("depth", "all", "all", "root"); err != nil {
		return "", err
	}

	res, err := d.client.ListPages(ctx, opts)
	if err != nil {
		return "", err
	}
	return r.Pages("Pages in Space", res)
}

func search(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	cql, err := a.requiredString("cql")
	if err != nil {
		return "", err
	}
	limit, err := a.integer("limit", defaultLimit, 1, maxSearchLimit)
	if err != nil {
		return "", err
	}
	cursor, err := a.optionalString("cursor", "")
	if err != nil {
		return "", err
	}

	res, err := d.client.SearchCQL(ctx, cql, limit, cursor)
	if err != nil {
		return "", err
	}
	return r.Search(cql, res)
}

func createPage(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	spaceID, err := a.identifier("spaceId")
	if err != nil {
		return "", err
	}
	title, err := a.requiredString("title")
	if err != nil {
		return "", err
	}
	body, err := a.requiredString("body")
	if err != nil {
		return "", err
	}
	if body, err = storageBody(a, body); err != nil {
		return "", err
	}
	parentID, err := a.optionalIdentifier("parentId")
	if err != nil {
		return "", err
	}

	page, err := d.client.CreatePage(ctx, confluence.CreatePageInput{
		SpaceID:  spaceID,
		Title:    title,
		Body:     body,
		ParentID: parentID,
	})
	if err != nil {
		return "", err
	}
	return r.Created(page)
}

func updatePage(ctx context.Context, d *Dispatcher, a args) (string, error) {
	r, err := renderer(a)
	if err != nil {
		return "", err
	}
	id, err := a.identifier("id")
	if err != nil {
		return "", err
	}
	body, err := a.requiredString("body")
	if err != nil {
		return "", err
	}
	if body, err = storageBody(a, body); err != nil {
		return "", err
	}
	expected, err := a.requiredInteger("expectedVersion", 1, math.MaxInt32)
	if err != nil {
		return "", err
	}
	title, err := a.optionalString("title", "")
	if err != nil {
		return "", err
	}
	message, err := a.optionalString("version_message", "")
	if err != nil {
		return "", err
	}

	page, err := d.client.UpdatePage(ctx, confluence.UpdatePageInput{
		ID:              id,
		Body:            body,
		ExpectedVersion: expected,
		Title:           title,
		Message:         message,
	})
	if err != nil {
		return "", err
	}
	return r.Updated(page)
}
