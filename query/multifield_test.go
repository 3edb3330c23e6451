package query

import (
	"testing"

	"github.com/fsphinx-go/fsphinx/queryterm"
)

func testFields() FieldMap {
	return FieldMap{
		UserToSphinx: map[string]string{"actor": "actors", "genre": "genres"},
	}
}

func TestParseAndRenderS1(t *testing.T) {
	q := New(testFields()).Parse("@year 1974 @genre drama @actor harrison ford")

	if got, want := q.ToString(), "(@year 1974) (@genre drama) (@actor harrison ford)"; got != want {
		t.Errorf("ToString() = %q, want %q", got, want)
	}
	if got, want := q.ToSphinx(false), `(@year 1974) (@genres drama) (@actors "harrison ford")`; got != want {
		t.Errorf("ToSphinx() = %q, want %q", got, want)
	}
	if got, want := q.ToCanonical(), `(@actors "harrison ford") (@genres drama) (@year 1974)`; got != want {
		t.Errorf("ToCanonical() = %q, want %q", got, want)
	}
}

func TestToggleS2(t *testing.T) {
	q := New(testFields()).Parse("@year 1974 @genre drama @actor harrison ford")
	q.Toggle("@year 1974", queryterm.Off)

	if got, want := q.ToString(), "(@-year 1974) (@genre drama) (@actor harrison ford)"; got != want {
		t.Errorf("ToString() = %q, want %q", got, want)
	}
	if got, want := q.ToSphinx(false), `(@genres drama) (@actors "harrison ford")`; got != want {
		t.Errorf("ToSphinx() = %q, want %q", got, want)
	}
	if !q.HasQueryTerm("@year 1974") {
		t.Error("HasQueryTerm(@year 1974) = false, want true")
	}
	if q.HasQueryTerm("@year 1999") {
		t.Error("HasQueryTerm(@year 1999) = true, want false")
	}
}

func TestToggleOffOnRoundTrip(t *testing.T) {
	q := New(testFields()).Parse("@year 1974")
	before := q.ToSphinx(false)
	q.Toggle("@year 1974", queryterm.Off)
	q.Toggle("@year 1974", queryterm.On)
	after := q.ToSphinx(false)
	if before != after {
		t.Errorf("ToSphinx() changed after off/on round trip: %q != %q", before, after)
	}
	if !q.HasQueryTerm("@year 1974") {
		t.Error("HasQueryTerm = false after round trip, want true")
	}
}

func TestDedupeFirstWriteWins(t *testing.T) {
	q := New(testFields()).Parse("@year 1974 @year 1974")
	if got, want := len(q.Terms()), 1; got != want {
		t.Errorf("len(Terms()) = %d, want %d", got, want)
	}
}

func TestCanonicalStableUnderReparse(t *testing.T) {
	q := New(testFields()).Parse("@genre drama @year 1974 @actor harrison ford")
	canonical := q.ToCanonical()

	// Re-parsing the canonical form should preserve the same active set.
	reparsed := New(testFields()).Parse(canonical)
	if got, want := reparsed.ToCanonical(), canonical; got != want {
		t.Errorf("ToCanonical() unstable under re-parse: %q != %q", got, want)
	}
}

func TestSameActiveSetSameCanonical(t *testing.T) {
	a := New(testFields()).Parse("@genre drama @year 1974")
	b := New(testFields()).Parse("@year 1974 @genre drama")
	if a.ToCanonical() != b.ToCanonical() {
		t.Errorf("different insertion order produced different canonical forms: %q vs %q", a.ToCanonical(), b.ToCanonical())
	}
}

func TestCountField(t *testing.T) {
	q := New(testFields()).Parse("@actor harrison ford @genre drama")
	if got, want := q.CountField("actor"), 1; got != want {
		t.Errorf("CountField(actor) = %d, want %d", got, want)
	}
	if got, want := q.CountField("actors"), 1; got != want {
		t.Errorf("CountField(actors) = %d, want %d", got, want)
	}
	if got, want := q.CountField("director"), 0; got != want {
		t.Errorf("CountField(director) = %d, want %d", got, want)
	}
}

func TestFreeTextClause(t *testing.T) {
	q := New(testFields()).Parse("@* drama")
	terms := q.Terms()
	if len(terms) != 1 {
		t.Fatalf("len(Terms()) = %d, want 1", len(terms))
	}
	if terms[0].UserField != "*" {
		t.Errorf("UserField = %q, want %q", terms[0].UserField, "*")
	}
}

func TestMalformedFragmentDropped(t *testing.T) {
	q := New(testFields()).Parse("@ ")
	if len(q.Terms()) != 0 {
		t.Errorf("expected malformed fragment to be dropped, got %d terms", len(q.Terms()))
	}
}
