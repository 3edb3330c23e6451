package facet

import (
	"context"
	"testing"

	"github.com/fsphinx-go/fsphinx/query"
)

func TestNewDefaultsS5(t *testing.T) {
	f := New(Options{
		Name:          "actor",
		MaxNumValues:  5,
		GroupFuncExpr: "sum(user_rating_attr * nb_votes_attr)",
		OrderKey:      "@groupfunc",
		OrderDesc:     true,
		Source:        SourceConfig{Name: "actor_terms_attr"},
	})

	if f.Attribute != "actor_attr" {
		t.Errorf("Attribute = %q, want actor_attr", f.Attribute)
	}
	if f.Func != GroupByAttribute {
		t.Errorf("Func = %d, want %d", f.Func, GroupByAttribute)
	}
	if f.GroupSort != "@groupfunc desc" {
		t.Errorf("GroupSort = %q, want %q", f.GroupSort, "@groupfunc desc")
	}
	wantSelect := "@groupby, @count, sum(user_rating_attr * nb_votes_attr) as @groupfunc, actor_terms_attr"
	if f.Select != wantSelect {
		t.Errorf("Select = %q, want %q", f.Select, wantSelect)
	}
	if f.SphField != "actor" {
		t.Errorf("SphField = %q, want actor", f.SphField)
	}
	if f.DefaultIndex != "" {
		t.Errorf("DefaultIndex = %q, want empty", f.DefaultIndex)
	}
	if f.MaxNumValues != 5 {
		t.Errorf("MaxNumValues = %d, want 5", f.MaxNumValues)
	}
	if f.MaxMatches != 1000 {
		t.Errorf("MaxMatches = %d, want 1000", f.MaxMatches)
	}
	if f.Cutoff != 0 {
		t.Errorf("Cutoff = %d, want 0", f.Cutoff)
	}
}

func fields() query.FieldMap {
	return query.FieldMap{UserToSphinx: map[string]string{"actor": "actors"}}
}

func TestPrepareAppliesLimitsAndRestoresBase(t *testing.T) {
	b := &fakeBackend{}
	f := New(Options{Name: "actor", MaxNumValues: 5, Augment: boolPtr(false)})
	q := query.New(fields()).Parse("@actor harrison ford")

	base := BackendState{Limit: 20, Select: "*"}
	slot, err := f.Prepare(context.Background(), b, base, q, false)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if slot != 0 {
		t.Errorf("slot = %d, want 0", slot)
	}
	if len(b.queries) != 1 {
		t.Fatalf("len(queries) = %d, want 1", len(b.queries))
	}
	got := b.queries[0]
	if got.state.Limit != 5 {
		t.Errorf("enqueued Limit = %d, want 5 (augment disabled)", got.state.Limit)
	}
	// state must be restored to base after Prepare returns
	if b.state.Limit != base.Limit || b.state.Select != base.Select {
		t.Errorf("backend state not restored: got limit=%d select=%q, want limit=%d select=%q",
			b.state.Limit, b.state.Select, base.Limit, base.Select)
	}
}

func TestPrepareAugmentsLimitByActiveCount(t *testing.T) {
	b := &fakeBackend{}
	f := New(Options{Name: "actor", MaxNumValues: 5, Augment: boolPtr(true)})
	f.SphField = "actors"
	q := query.New(fields()).Parse("@actor harrison ford @actor clint eastwood")

	if _, err := f.Prepare(context.Background(), b, BackendState{}, q, false); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got, want := b.queries[0].state.Limit, 5+q.CountField("actors"); got != want {
		t.Errorf("augmented limit = %d, want %d", got, want)
	}
}

func TestPrepareNoAugment(t *testing.T) {
	b := &fakeBackend{}
	f := New(Options{Name: "actor", MaxNumValues: 5, Augment: boolPtr(false)})
	f.SphField = "actors"
	q := query.New(fields()).Parse("@actor harrison ford")

	if _, err := f.Prepare(context.Background(), b, BackendState{}, q, false); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got, want := b.queries[0].state.Limit, 5; got != want {
		t.Errorf("limit = %d, want %d (augment disabled)", got, want)
	}
}

func TestSetValuesMarksSelectedAndResolvesTerms(t *testing.T) {
	f := New(Options{Name: "actor"})
	f.SphField = "actors"
	q := query.New(fields()).Parse("@actor harrison ford")

	res := Result{
		Time:       0.002,
		TotalFound: 2,
		Matches: []Match{
			{"@groupby": "1", "@count": 10},
			{"@groupby": "2", "@count": 4},
		},
	}
	// self-attached embedded source mapping id->term
	f.Source = SourceConfig{Name: "actor_terms_attr"}
	for i := range res.Matches {
		res.Matches[i]["actor_terms_attr"] = "1,Harrison Ford,2,Clint Eastwood"
	}

	if err := f.SetValues(context.Background(), res, q); err != nil {
		t.Fatalf("SetValues() error = %v", err)
	}
	if f.Results.TotalFound != 2 {
		t.Errorf("TotalFound = %d, want 2", f.Results.TotalFound)
	}
	if len(f.Results.Matches) != 2 {
		t.Fatalf("len(Matches) = %d, want 2", len(f.Results.Matches))
	}
	m0 := f.Results.Matches[0]
	if m0["@term"] != "Harrison Ford" {
		t.Errorf("@term = %v, want Harrison Ford", m0["@term"])
	}
	if m0["@selected"] != "True" {
		t.Errorf("@selected = %v, want True (query has harrison ford active)", m0["@selected"])
	}
	m1 := f.Results.Matches[1]
	if m1["@selected"] != "False" {
		t.Errorf("@selected = %v, want False", m1["@selected"])
	}
}

func TestSetValuesBackpropagatesResolvedTerm(t *testing.T) {
	f := New(Options{Name: "actor"})
	f.SphField = "actors"
	f.Source = SourceConfig{Name: "actor_terms_attr"}
	q := query.New(fields()).Parse("@actor 1")

	res := Result{Matches: []Match{
		{"@groupby": "1", "@count": 3, "actor_terms_attr": "1,Harrison Ford"},
	}}
	if err := f.SetValues(context.Background(), res, q); err != nil {
		t.Fatalf("SetValues() error = %v", err)
	}
	terms := q.Terms()
	if len(terms) != 1 || terms[0].UserTerm != "Harrison Ford" {
		t.Errorf("UserTerm = %q, want Harrison Ford", terms[0].UserTerm)
	}
}

func TestSetValuesEmptyMatches(t *testing.T) {
	f := New(Options{Name: "actor"})
	q := query.New(fields()).Parse("@actor harrison ford")
	if err := f.SetValues(context.Background(), Result{Time: 0.001}, q); err != nil {
		t.Fatalf("SetValues() error = %v", err)
	}
	if f.Results.Matches != nil {
		t.Errorf("Matches = %v, want nil", f.Results.Matches)
	}
}

func TestAugmentSynthesizeMissingSelected(t *testing.T) {
	f := New(Options{Name: "genre", Augment: boolPtr(true)})
	f.SphField = "genre"
	f.AugmentPolicy = AugmentSynthesize
	q := query.New(fields()).Parse("@genre noir")

	res := Result{Matches: []Match{
		{"@groupby": "drama", "@count": 5},
	}}
	if err := f.SetValues(context.Background(), res, q); err != nil {
		t.Fatalf("SetValues() error = %v", err)
	}
	var sawNoir bool
	for _, m := range f.Results.Matches {
		if m["@term"] == "noir" {
			sawNoir = true
			if m["@count"] != 0 {
				t.Errorf("synthesized row @count = %v, want 0", m["@count"])
			}
		}
	}
	if !sawNoir {
		t.Error("expected synthesized row for selected-but-missing term 'noir'")
	}
}

func TestAugmentOmitDropsMissingSelected(t *testing.T) {
	f := New(Options{Name: "genre", Augment: boolPtr(true)})
	f.SphField = "genre"
	f.AugmentPolicy = AugmentOmit
	q := query.New(fields()).Parse("@genre noir")

	res := Result{Matches: []Match{
		{"@groupby": "drama", "@count": 5},
	}}
	if err := f.SetValues(context.Background(), res, q); err != nil {
		t.Fatalf("SetValues() error = %v", err)
	}
	for _, m := range f.Results.Matches {
		if m["@term"] == "noir" {
			t.Error("AugmentOmit should not synthesize a row for the missing term")
		}
	}
}

func TestOrderValuesDesc(t *testing.T) {
	f := New(Options{Name: "genre"})
	f.Results.Matches = []Match{
		{"@count": 3.0}, {"@count": 9.0}, {"@count": 1.0},
	}
	f.OrderValues()
	want := []float64{9, 3, 1}
	for i, m := range f.Results.Matches {
		if m["@count"].(float64) != want[i] {
			t.Errorf("position %d = %v, want %v", i, m["@count"], want[i])
		}
	}
}

func boolPtr(b bool) *bool { return &b }
