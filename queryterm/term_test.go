package queryterm

import "testing"

func TestToSphinx(t *testing.T) {
	tests := []struct {
		name   string
		term   *QueryTerm
		exNum  bool
		want   string
	}{
		{
			name: "simple",
			term: New(Active, "year", "year", "", "1974"),
			want: "(@year 1974)",
		},
		{
			name: "multi-word gets quoted",
			term: New(Active, "actor", "actors", "", "harrison ford"),
			want: `(@actors "harrison ford")`,
		},
		{
			name: "inactive yields empty",
			term: New(Inactive, "year", "year", "", "1974"),
			want: "",
		},
		{
			name:  "numeric excluded when filtering",
			term:  New(Active, "year", "year", "", "1974"),
			exNum: true,
			want:  "",
		},
		{
			name: "hyphen between words becomes space",
			term: New(Active, "keyword", "keyword", "", "sci-fi"),
			want: `(@keyword "sci fi")`,
		},
		{
			name: "embedded quotes are stripped",
			term: New(Active, "title", "title", "", `the "great" escape`),
			want: `(@title "the great escape")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.term.ToSphinx(tt.exNum); got != tt.want {
				t.Errorf("ToSphinx() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToCanonical(t *testing.T) {
	term := New(Active, "actor", "actors", "", "Harrison Ford")
	if got, want := term.ToCanonical(), `(@actors "harrison ford")`; got != want {
		t.Errorf("ToCanonical() = %q, want %q", got, want)
	}
	inactive := New(Inactive, "year", "year", "", "1974")
	if got := inactive.ToCanonical(); got != "" {
		t.Errorf("ToCanonical() on inactive term = %q, want empty", got)
	}
}

func TestToString(t *testing.T) {
	term := New(Active, "year", "year", "", "1974")
	if got, want := term.ToString(), "(@year 1974)"; got != want {
		t.Errorf("ToString() = %q, want %q", got, want)
	}
	term.Status = Inactive
	if got, want := term.ToString(), "(@-year 1974)"; got != want {
		t.Errorf("ToString() inactive = %q, want %q", got, want)
	}
}

func TestHashInvariantUnderStatusAndDisplay(t *testing.T) {
	term := New(Active, "year", "year", "", "1974")
	h1 := term.Hash()
	term.Status = Inactive
	term.UserTerm = "Nineteen Seventy Four"
	h2 := term.Hash()
	if h1 != h2 {
		t.Errorf("Hash changed after status/display mutation: %q != %q", h1, h2)
	}
}

func TestKnownHashes(t *testing.T) {
	// From spec S3: "@year 1974 @genre drama @actor harrison ford"
	tests := []struct {
		userField, term, want string
	}{
		{"year", "1974", "34c8591584caa46cfffd72a5e79ee044"},
		{"genre", "drama", "dbfce37cec16608122177c33ef54c47a"},
		{"actor", "harrison ford", "e18101bef1c8ae8f43b2448574ed3f04"},
	}
	for _, tt := range tests {
		term := New(Active, tt.userField, tt.userField, "", tt.term)
		if got := term.Hash(); got != tt.want {
			t.Errorf("Hash(%s,%s) = %q, want %q", tt.userField, tt.term, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	terms := []*QueryTerm{
		New(Active, "keyword", "keyword", "", "Dramaa"),
		New(Inactive, "keyword", "keyword", "", "drama"),
		New(Active, "actor", "actor", "", "Harrison Ford"),
		New(Inactive, "actor", "actor", "", "Clint Eastwood"),
		New(Active, "keyword", "keyword", "", "Crime"),
	}
	want := []string{"Clint Eastwood", "Harrison Ford", "Crime", "drama", "Dramaa"}

	sorted := make([]*QueryTerm, len(terms))
	copy(sorted, terms)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && Compare(sorted[j-1], sorted[j]) > 0; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	for i, term := range sorted {
		if term.Term != want[i] {
			t.Errorf("position %d = %q, want %q", i, term.Term, want[i])
		}
	}
}
