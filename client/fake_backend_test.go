package client

import (
	"context"

	"github.com/fsphinx-go/fsphinx/facet"
)

// fakeBackend mirrors facet's own test double: it records every mutation and
// returns a pre-scripted facet.Result per AddQuery call in enqueue order.
type fakeBackend struct {
	state facet.BackendState

	queries []enqueued
	script  []facet.Result

	runCalls int
}

type enqueued struct {
	text, index, comment string
	state                facet.BackendState
}

func (b *fakeBackend) SetLimits(offset, limit, maxMatches, cutoff int) {
	b.state.Offset, b.state.Limit, b.state.MaxMatches, b.state.Cutoff = offset, limit, maxMatches, cutoff
}
func (b *fakeBackend) SetSelect(columns string) { b.state.Select = columns }
func (b *fakeBackend) SetGroupBy(attribute string, fn facet.GroupFunc, groupSort string) {
	b.state.GroupAttr, b.state.GroupFunc, b.state.GroupSort = attribute, fn, groupSort
}
func (b *fakeBackend) SetMatchMode(mode facet.MatchMode) { b.state.MatchMode = mode }
func (b *fakeBackend) SetSortMode(mode facet.SortMode, by string) {
	b.state.SortMode, b.state.SortBy = mode, by
}
func (b *fakeBackend) SetFilter(f facet.Filter)    { b.state.Filters = append(b.state.Filters, f) }
func (b *fakeBackend) ResetGroupBy()               { b.state.GroupAttr = "" }
func (b *fakeBackend) ResetFilters()               { b.state.Filters = nil }
func (b *fakeBackend) SetArrayResult(enabled bool) { b.state.ArrayResult = enabled }

func (b *fakeBackend) AddQuery(_ context.Context, text, index, comment string) (int, error) {
	slot := len(b.queries)
	b.queries = append(b.queries, enqueued{text: text, index: index, comment: comment, state: b.state})
	return slot, nil
}

func (b *fakeBackend) RunQueries(_ context.Context) ([]facet.Result, error) {
	b.runCalls++
	out := b.script
	return out, nil
}

var _ facet.SearchBackend = (*fakeBackend)(nil)
