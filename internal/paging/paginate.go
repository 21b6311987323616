// Package paging applies $skiptoken, $skip, $top, $inlinecount and server
// paging to filtered and sorted entity collections.
package paging

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/queryerr"
)

// TokenMode selects which entity a continuation token names.
type TokenMode int

const (
	// TokenFirstExcluded names the first entity not returned. Resuming
	// starts at that entity.
	TokenFirstExcluded TokenMode = iota

	// TokenLastIncluded names the last entity returned. Resuming starts
	// after that entity.
	TokenLastIncluded
)

var tokenModeNames = map[TokenMode]string{
	TokenFirstExcluded: "first-excluded",
	TokenLastIncluded:  "last-included",
}

func (m TokenMode) String() string {
	if s, ok := tokenModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("TokenMode(%d)", int(m))
}

// ParseTokenMode resolves a configured mode name. Empty means
// TokenFirstExcluded.
func ParseTokenMode(s string) (TokenMode, error) {
	if s == "" {
		return TokenFirstExcluded, nil
	}
	for m, name := range tokenModeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown token mode %q (want first-excluded or last-included)", s)
}

// Request carries the paging options of one request.
type Request struct {
	Skip      *int
	Top       *int
	SkipToken string

	// OrderBy reports that the request supplied $orderby. Server paging
	// only applies to the default key order.
	OrderBy bool

	// InlineCount requests $inlinecount=allpages.
	InlineCount bool

	// URI is the request URI used to build the next link.
	URI string

	// BackendApplied reports that $skip and $top were already applied by
	// the backend, so the collection is the requested page.
	BackendApplied bool

	// Count is the backend-computed filtered count, used for InlineCount
	// when the collection is not the whole filtered set.
	Count *int
}

// PageResult is one page of entities plus its bookkeeping.
type PageResult struct {
	Entities  []any
	Count     *int
	SkipToken string
	NextLink  string

	// ETags holds one weak entity tag per returned entity when the entity
	// type declares fixed-concurrency properties.
	ETags []string
}

// Paginator pages collections of one entity type.
type Paginator struct {
	Type     *edm.StructuralType
	Accessor edm.Accessor

	// PageSize enables server paging when positive.
	PageSize int
	Mode     TokenMode
	Logger   *slog.Logger
}

func (p *Paginator) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Paginate applies, in order: the skip token, $skip, $top and server
// paging. The input slice is never modified.
//
// A skip token that matches no entity yields an empty page; the condition
// is logged, not returned. Errors come only from reading key or concurrency
// properties.
func (p *Paginator) Paginate(entities []any, req Request) (*PageResult, error) {
	result := &PageResult{}
	if req.InlineCount {
		n := len(entities)
		if req.Count != nil {
			n = *req.Count
		}
		result.Count = &n
	}

	remaining := entities
	if req.SkipToken != "" {
		var err error
		remaining, err = p.resume(remaining, req.SkipToken)
		if err != nil {
			return nil, err
		}
	}

	if !req.BackendApplied {
		if req.Skip != nil {
			remaining = remaining[min(max(*req.Skip, 0), len(remaining)):]
		}
		if req.Top != nil {
			remaining = remaining[:min(max(*req.Top, 0), len(remaining))]
		}
	}

	if p.PageSize > 0 && req.Skip == nil && req.Top == nil && !req.OrderBy && len(remaining) > p.PageSize {
		named := remaining[p.PageSize]
		if p.Mode == TokenLastIncluded {
			named = remaining[p.PageSize-1]
		}
		token, err := entity.KeyString(p.Accessor, named, p.Type.Keys)
		if err != nil {
			return nil, fmt.Errorf("continuation token: %w", err)
		}
		remaining = remaining[:p.PageSize]
		result.SkipToken = token
		if req.URI != "" {
			result.NextLink = NextLink(req.URI, token)
		}
	}

	result.Entities = slices.Clone(remaining)
	if err := p.tag(result); err != nil {
		return nil, err
	}

	p.log().Debug("page built",
		"entities", len(result.Entities),
		"token", result.SkipToken,
		"mode", p.Mode,
	)
	return result, nil
}

// resume drops the entities before the one named by token, and that entity
// too in TokenLastIncluded mode.
func (p *Paginator) resume(entities []any, token string) ([]any, error) {
	for i, e := range entities {
		cursor, err := entity.KeyString(p.Accessor, e, p.Type.Keys)
		if err != nil {
			return nil, fmt.Errorf("skip token scan: %w", err)
		}
		if cursor != token {
			continue
		}
		if p.Mode == TokenLastIncluded {
			return entities[i+1:], nil
		}
		return entities[i:], nil
	}
	p.log().Warn("skip token matched no entity", "error", queryerr.PaginationState(token))
	return nil, nil
}

func (p *Paginator) tag(result *PageResult) error {
	if len(p.Type.ConcurrencyProperties()) == 0 {
		return nil
	}
	result.ETags = make([]string, len(result.Entities))
	for i, e := range result.Entities {
		tag, _, err := entity.ETag(p.Accessor, e, p.Type)
		if err != nil {
			return fmt.Errorf("etag: %w", err)
		}
		result.ETags[i] = tag
	}
	return nil
}
