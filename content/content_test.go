package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRelaxedJSON(t *testing.T) {
	raw := "\uFEFF" + `{
  // hand-maintained dataset
  "experience": [
    {"org": "University of East Anglia", "title": "Researcher"},
  ],
  /* publications pending */
  "publications": [],
}`
	path := filepath.Join(t.TempDir(), "content.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Experience) != 1 {
		t.Fatalf("experience entries = %d, want 1", len(doc.Experience))
	}
	if doc.Experience[0].Org != "University of East Anglia" {
		t.Fatalf("org = %q", doc.Experience[0].Org)
	}
}

func TestLoadMissingIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Load on missing file succeeded")
	}
}

func TestDocumentKeepsUnknownSections(t *testing.T) {
	raw := `{"publications": [], "site": {"theme": "dark"}}`
	path := filepath.Join(t.TempDir(), "content.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "out.json")
	if err := Write(out, doc); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); !strings.Contains(got, `"theme"`) {
		t.Fatalf("unknown section dropped on round trip:\n%s", got)
	}
}

func TestYearAcceptsNumberAndString(t *testing.T) {
	var p Publication
	if err := p.Year.UnmarshalJSON([]byte(`2020`)); err != nil {
		t.Fatal(err)
	}
	if p.Year != "2020" {
		t.Fatalf("numeric year = %q", p.Year)
	}
	if err := p.Year.UnmarshalJSON([]byte(`"in press"`)); err != nil {
		t.Fatal(err)
	}
	if p.Year != "in press" {
		t.Fatalf("string year = %q", p.Year)
	}
}
