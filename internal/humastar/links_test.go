package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionLinkHeader(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Action{Rel: "self", Href: "/a"}, `</a>; rel="self"`},
		{Action{Rel: "close", Href: "/a", Method: "DELETE"}, `</a>; rel="close"; method="DELETE"`},
		{Action{Rel: "close", Href: "/a", Method: "DELETE", Title: "Close"}, `</a>; rel="close"; method="DELETE"; title="Close"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.action.LinkHeader())
	}
}

func TestActionsFor(t *testing.T) {
	got := ActionsFor("s1", []ActionDef{
		{Rel: "dispatch", Pattern: "/sessions/%s/actions", Method: "POST"},
	})
	assert.Equal(t, []Action{{Rel: "dispatch", Href: "/sessions/s1/actions", Method: "POST"}}, got)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Page(items, 2, 2)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, []int{3, 4}, p.Data)
	assert.Equal(t, []string{
		`</x?offset=0&limit=2>; rel="first"`,
		`</x?offset=0&limit=2>; rel="prev"`,
		`</x?offset=4&limit=2>; rel="next"`,
		`</x?offset=4&limit=2>; rel="last"`,
	}, p.PaginationLinks("/x"))

	past := Page(items, 10, 2)
	assert.Empty(t, past.Data)
	assert.NotNil(t, past.Data)

	assert.Nil(t, Page(items, 0, 0).PaginationLinks("/x"))
}
