package bibtex

import "testing"

func TestParseBasicEntry(t *testing.T) {
	src := `
% exported bibliography
@Article{smith2020storm,
  author = {Smith, Jane and Doe, John},
  title  = {{Storm} surge modelling},
  year   = {2020},
  doi    = {10.1029/2019JC015577}
}
`
	entries := Parse(src)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Type != "article" {
		t.Errorf("type = %q, want article", e.Type)
	}
	if e.Key != "smith2020storm" {
		t.Errorf("key = %q", e.Key)
	}
	if got := e.Fields["author"]; got != "Smith, Jane and Doe, John" {
		t.Errorf("author = %q", got)
	}
	// One outer brace layer is removed, inner braces survive for the
	// normalizer.
	if got := e.Fields["title"]; got != "{Storm} surge modelling" {
		t.Errorf("title = %q", got)
	}
	if got := e.Fields["doi"]; got != "10.1029/2019JC015577" {
		t.Errorf("doi = %q", got)
	}
}

func TestParseNestedBracesAndQuotes(t *testing.T) {
	src := `@inproceedings{key1,
  title = {A {Nested {Deep}} Title},
  note = "a quoted, value with {brace}",
  pages = 12--34,
}
@misc{key2, title = {Second}}`

	entries := Parse(src)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	e := entries[0]
	if got := e.Fields["title"]; got != "A {Nested {Deep}} Title" {
		t.Errorf("title = %q", got)
	}
	// The comma inside the quoted value must not split the field.
	if got := e.Fields["note"]; got != "a quoted, value with {brace}" {
		t.Errorf("note = %q", got)
	}
	if got := e.Fields["pages"]; got != "12--34" {
		t.Errorf("pages = %q", got)
	}
	if entries[1].Key != "key2" {
		t.Errorf("second key = %q", entries[1].Key)
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"empty", "", 0},
		{"comment only", "% nothing here\n", 0},
		{"no key", "@article{, title = {X}}", 0},
		{"unbalanced", "@article{k, title = {X}", 0},
		{"no fields", "@article{k}", 0},
	}
	for _, tt := range tests {
		if got := len(Parse(tt.src)); got != tt.want {
			t.Errorf("%s: entries = %d, want %d", tt.name, got, tt.want)
		}
	}
}
