package classifier

import (
	"testing"

	"github.com/menta2k/bin-go/pkg/types"
)

func TestClassifyByText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want types.Bin
	}{
		{"recycling keyword", "plastic water bottle", types.Recycling},
		{"cardboard box", "cardboard box", types.Recycling},
		{"newspaper", "old newspaper", types.Recycling},
		{"compost keyword", "banana peel", types.Compost},
		{"leftovers", "leftover rice", types.Compost},
		{"compostable cutlery", "compostable fork", types.Compost},
		{"both sets prefer recycling", "apple sauce jar", types.Recycling},
		{"food container", "food container", types.Recycling},
		{"no keyword", "broken umbrella", types.Trash},
		{"styrofoam", "styrofoam cup", types.Trash},
		{"empty", "", types.Trash},
		{"whitespace only", "   \t\n", types.Trash},
		{"substring match", "scanner", types.Recycling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyByText(tt.text); got != tt.want {
				t.Errorf("ClassifyByText(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyByTextNormalization(t *testing.T) {
	a := ClassifyByText("  Plastic Bottle ")
	b := ClassifyByText("plastic bottle")
	if a != b {
		t.Errorf("expected case and whitespace to be ignored, got %s and %s", a, b)
	}
	if got := ClassifyByText("BANANA"); got != types.Compost {
		t.Errorf("expected compost for upper case input, got %s", got)
	}
}

func TestClassifyByTextProperties(t *testing.T) {
	c := Default()
	recycling := DefaultKeywordTable[0].Keywords
	compost := DefaultKeywordTable[1].Keywords

	for _, r := range recycling {
		if got := c.ClassifyByText("a " + r + " thing"); got != types.Recycling {
			t.Errorf("recycling keyword %q gave %s", r, got)
		}
		for _, k := range compost {
			if got := c.ClassifyByText(k + " " + r); got != types.Recycling {
				t.Errorf("%q with %q should prefer recycling, got %s", k, r, got)
			}
		}
	}

	for _, k := range compost {
		if got := c.ClassifyByText(k); got != types.Compost {
			t.Errorf("compost keyword %q gave %s", k, got)
		}
	}
}

func TestClassifyByLabel(t *testing.T) {
	tests := []struct {
		label string
		want  types.Bin
	}{
		{"", types.Trash},
		{"glass", types.Recycling},
		{"metal", types.Recycling},
		{"Plastic", types.Recycling},
		{" cardboard ", types.Recycling},
		{"paper", types.Recycling},
		{"organic", types.Compost},
		{"banana", types.Compost},
		{"FOOD", types.Compost},
		{"compost", types.Compost},
		{"rubber", types.Trash},
		{"trash", types.Trash},
	}

	for _, tt := range tests {
		if got := ClassifyByLabel(tt.label); got != tt.want {
			t.Errorf("ClassifyByLabel(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestKnownLabel(t *testing.T) {
	c := New()
	if !c.KnownLabel("Glass") {
		t.Error("glass should be a known label")
	}
	if c.KnownLabel("rubber") {
		t.Error("rubber should not be a known label")
	}
}

func TestNewWithTablesCopies(t *testing.T) {
	rules := []Rule{{Bin: types.Compost, Keywords: []string{" Leaf "}}}
	labels := map[string]types.Bin{"Leaf": types.Compost}

	c := NewWithTables(rules, labels)
	rules[0].Keywords[0] = "stone"
	labels["stone"] = types.Recycling

	if got := c.ClassifyByText("oak leaf"); got != types.Compost {
		t.Errorf("expected compost, got %s", got)
	}
	if got := c.ClassifyByText("stone"); got != types.Trash {
		t.Errorf("caller mutation leaked into classifier: got %s", got)
	}
	if got := c.ClassifyByLabel("leaf"); got != types.Compost {
		t.Errorf("expected compost label, got %s", got)
	}
	if got := c.ClassifyByLabel("stone"); got != types.Trash {
		t.Errorf("caller mutation leaked into label table: got %s", got)
	}
}

func BenchmarkClassifyByText(b *testing.B) {
	c := New()
	for i := 0; i < b.N; i++ {
		c.ClassifyByText("a slightly greasy pizza box with some leftover crust")
	}
}

func BenchmarkClassifyByLabel(b *testing.B) {
	c := New()
	for i := 0; i < b.N; i++ {
		c.ClassifyByLabel("organic")
	}
}
