// Package classifier maps item descriptions and external model labels to a bin.
//
// Text is matched against an ordered keyword table: the first rule whose
// keyword appears anywhere in the normalized text decides the bin, so
// recycling keywords win over compost keywords. Labels are looked up in a
// flat table. Both paths fall back to trash and never fail.
package classifier

import (
	"strings"

	"github.com/menta2k/bin-go/pkg/types"
)

// Rule pairs a set of keywords with the bin they are evidence for
type Rule struct {
	Bin      types.Bin
	Keywords []string
}

// DefaultKeywordTable is evaluated top to bottom
var DefaultKeywordTable = []Rule{
	{
		Bin:      types.Recycling,
		Keywords: []string{"bottle", "plastic", "can", "jar", "container", "paper", "cardboard", "newspaper", "magazine"},
	},
	{
		Bin:      types.Compost,
		Keywords: []string{"banana", "apple", "peel", "food", "leftover", "compostable"},
	},
}

// DefaultLabelTable maps image model class names to bins
var DefaultLabelTable = map[string]types.Bin{
	"plastic":   types.Recycling,
	"cardboard": types.Recycling,
	"paper":     types.Recycling,
	"metal":     types.Recycling,
	"glass":     types.Recycling,
	"banana":    types.Compost,
	"food":      types.Compost,
	"organic":   types.Compost,
	"compost":   types.Compost,
}

// Classifier holds the immutable tables used to pick a bin
type Classifier struct {
	rules  []Rule
	labels map[string]types.Bin
}

var defaultClassifier = New()

// New creates a Classifier backed by the default tables
func New() *Classifier {
	return NewWithTables(DefaultKeywordTable, DefaultLabelTable)
}

// NewWithTables creates a Classifier with custom tables. The tables are
// copied so later changes by the caller have no effect.
func NewWithTables(rules []Rule, labels map[string]types.Bin) *Classifier {
	c := &Classifier{
		rules:  make([]Rule, 0, len(rules)),
		labels: make(map[string]types.Bin, len(labels)),
	}
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = normalize(k); k != "" {
				kw = append(kw, k)
			}
		}
		c.rules = append(c.rules, Rule{Bin: r.Bin, Keywords: kw})
	}
	for label, bin := range labels {
		c.labels[normalize(label)] = bin
	}
	return c
}

// Default returns the shared classifier built from the default tables
func Default() *Classifier {
	return defaultClassifier
}

// ClassifyByText returns the bin for a free-text item description
func (c *Classifier) ClassifyByText(text string) types.Bin {
	text = normalize(text)
	if text == "" {
		return types.DefaultBin
	}
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Bin
			}
		}
	}
	return types.DefaultBin
}

// ClassifyByLabel returns the bin for a single model label. An empty label
// is treated as missing.
func (c *Classifier) ClassifyByLabel(label string) types.Bin {
	label = normalize(label)
	if label == "" {
		return types.DefaultBin
	}
	if bin, ok := c.labels[label]; ok {
		return bin
	}
	return types.DefaultBin
}

// KnownLabel reports whether label has an explicit entry in the label table
func (c *Classifier) KnownLabel(label string) bool {
	_, ok := c.labels[normalize(label)]
	return ok
}

// ClassifyByText classifies text with the default tables
func ClassifyByText(text string) types.Bin {
	return defaultClassifier.ClassifyByText(text)
}

// ClassifyByLabel classifies a label with the default tables
func ClassifyByLabel(label string) types.Bin {
	return defaultClassifier.ClassifyByLabel(label)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
