// Package grammar holds grammar.ebnf, a formal EBNF description of the
// language's concrete grammar (spec.md §4.3's rule table and statement
// forms), verified by TestEBNF the same way the teacher verifies its own
// grammar.ebnf: golang.org/x/exp/ebnf parses the file and checks every
// production reachable from the start symbol is defined.
package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

func TestEBNF(t *testing.T) {
	f, err := os.Open("grammar.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("grammar.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Program"); err != nil {
		t.Fatal(err)
	}
}
