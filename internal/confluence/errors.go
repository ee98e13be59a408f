package confluence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies every failure the client can surface.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindAuth
	KindNotFound
	KindConflict
	KindVersionConflict
	KindValidation
	KindInvalidQuery
	KindUpstream
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:         "UnknownError",
	KindConfig:          "ConfigError",
	KindAuth:            "AuthError",
	KindNotFound:        "NotFound",
	KindConflict:        "Conflict",
	KindVersionConflict: "VersionConflict",
	KindValidation:      "ValidationError",
	KindInvalidQuery:    "InvalidQuery",
	KindUpstream:        "UpstreamError",
	KindTimeout:         "TimeoutError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every Client operation.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	// Body is the upstream error body, kept verbatim.
	Body string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound is shorthand for IsKind(err, KindNotFound).
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// operation names double as the hint for op-specific status mapping.
const (
	opListSpaces    = "list spaces"
	opGetSpace      = "get space"
	opGetSpaceByKey = "get space by key"
	opListPages     = "list pages"
	opGetPage       = "get page"
	opSearch        = "search"
	opCreatePage    = "create page"
	opUpdatePage    = "update page"
)

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(op string, status int, body []byte) *Error {
	raw := strings.TrimSpace(string(body))
	e := &Error{Op: op, StatusCode: status, Body: raw}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuth
		e.Message = "authentication failed; check CONFLUENCE_EMAIL and CONFLUENCE_API_TOKEN"
	case status == http.StatusForbidden:
		e.Kind = KindAuth
		e.Message = "permission denied; the account may not have access to this resource"
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = "resource not found; check the id or key provided"
	case status == http.StatusConflict:
		if op == opUpdatePage {
			e.Kind = KindVersionConflict
			e.Message = "version conflict; re-fetch the page and retry with its current version"
		} else {
			e.Kind = KindConflict
			e.Message = "conflict"
			if op == opCreatePage {
				e.Message = "a page with this title already exists in the space"
			}
		}
	case status == http.StatusBadRequest:
		switch {
		case op == opSearch:
			e.Kind = KindInvalidQuery
			e.Message = "invalid CQL query"
		case op == opCreatePage && mentionsDuplicateTitle(raw):
			e.Kind = KindConflict
			e.Message = "a page with this title already exists in the space"
		default:
			e.Kind = KindValidation
			e.Message = "request rejected by Confluence"
		}
	case status >= 500:
		e.Kind = KindUpstream
		e.Message = "Confluence returned a server error"
	default:
		e.Kind = KindUpstream
		e.Message = fmt.Sprintf("unexpected response %s", http.StatusText(status))
	}

	return e
}

// transportError classifies a failure that produced no HTTP response.
func transportError(op string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, Op: op, Message: "request timed out", Err: err}
	}
	return &Error{Kind: KindUpstream, Op: op, Message: "request failed", Err: err}
}

// mentionsDuplicateTitle matches the 400 Confluence Cloud returns for a
// title collision instead of a 409.
func mentionsDuplicateTitle(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "already exists") && strings.Contains(lower, "title")
}
