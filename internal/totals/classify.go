package totals

import (
	"strings"
)

// Bucket is a coarse presentation group of line items.
type Bucket string

const (
	BucketEquipment  Bucket = "EQUIPMENT"
	BucketMaterials  Bucket = "MATERIALS"
	BucketComponents Bucket = "COMPONENTS"
	BucketWorks      Bucket = "WORKS"
)

// Rule maps any of its keywords, matched as a case-insensitive substring of the
// item's category label, to a bucket.
type Rule struct {
	Bucket   Bucket
	Keywords []string
}

// Classifier assigns every item to exactly one bucket. It is a heuristic: rules
// are tried in order, the first keyword hit wins, otherwise Default is used.
type Classifier struct {
	Rules   []Rule
	Default Bucket
	// Order is the fixed presentation order of buckets.
	Order []Bucket
}

// DefaultClassifier covers the category labels seen in the catalogs, in English and Ukrainian.
func DefaultClassifier() *Classifier {
	return &Classifier{
		Rules: []Rule{
			{Bucket: BucketWorks, Keywords: []string{"work", "service", "робот", "послуг", "монтаж"}},
			{Bucket: BucketComponents, Keywords: []string{"component", "комплектуюч"}},
			{Bucket: BucketMaterials, Keywords: []string{"material", "kit", "panel", "cable", "матеріал", "кабел"}},
		},
		Default: BucketEquipment,
		Order:   []Bucket{BucketEquipment, BucketMaterials, BucketComponents, BucketWorks},
	}
}

// Classify returns the bucket for a free-text category label.
func (c *Classifier) Classify(category string) Bucket {
	label := strings.ToLower(category)
	for _, r := range c.Rules {
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(label, kw) {
				return r.Bucket
			}
		}
	}
	return c.Default
}

// order returns the presentation order, appending any rule or default bucket
// that the configured order forgot so no item can be dropped.
func (c *Classifier) order() []Bucket {
	seen := make(map[Bucket]bool, len(c.Order)+len(c.Rules)+1)
	out := make([]Bucket, 0, len(c.Order)+len(c.Rules)+1)
	add := func(b Bucket) {
		if b == "" || seen[b] {
			return
		}
		seen[b] = true
		out = append(out, b)
	}
	for _, b := range c.Order {
		add(b)
	}
	for _, r := range c.Rules {
		add(r.Bucket)
	}
	add(c.Default)
	return out
}
