package humastar

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Action is a state-dependent hypermedia action, emitted as
//
//	<url>; rel="close"; method="DELETE"; title="Close the session"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// Actor is implemented by response bodies that offer actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}

// ActionDef is an action template. Pattern has one %s verb for the resource id.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
}

// ActionsFor expands defs for the resource id.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
		}
	}
	return actions
}

// Pager is implemented by paginated response bodies.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a paginated response envelope.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// Page slices items by offset and limit.
func Page[T any](items []T, offset, limit int) PageBody[T] {
	p := PageBody[T]{Total: len(items), Offset: offset, Limit: limit, Data: []T{}}
	if offset < len(items) {
		end := min(offset+limit, len(items))
		p.Data = items[offset:end]
	}
	return p
}

// PaginationLinks returns the first, prev, next and last links.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	links := []string{fmt.Sprintf(`<%s?offset=0&limit=%d>; rel="first"`, basePath, p.Limit)}

	if p.Offset > 0 {
		prev := max(p.Offset-p.Limit, 0)
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="prev"`, basePath, prev, p.Limit))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="next"`, basePath, p.Offset+p.Limit, p.Limit))
	}

	last := max((p.Total-1)/p.Limit*p.Limit, 0)
	links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="last"`, basePath, last, p.Limit))
	return links
}

// LinkTransformer returns a Huma Transformer that injects the static links of
// the operation path, a self link on item paths, and the links of response
// bodies implementing Pager or Actor.
func LinkTransformer(static map[string][]string) huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range static[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}
