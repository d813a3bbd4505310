// Package lineitem converts between the historical encodings of an order's
// products and the canonical []domain.LineItem.
//
// Three shapes exist in stored data, oldest first: a newline-joined string of
// names, a single flat product/weight/note triple, and a JSON array of
// {name, weight, note} objects. Decode reads whichever is present; Encode
// writes all three so readers of any shape keep working.
package lineitem

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

// text accepts a JSON string or number.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

type detailed struct {
	Name    text `json:"name"`
	Product text `json:"product"`
	Weight  text `json:"weight"`
	Note    text `json:"note"`
}

// Decode returns the line items of f. The first encoding present wins:
// detailed JSON, then the flat triple, then the newline-joined names. A
// detailed field that parses is authoritative even when it holds no named
// entries; a blank or malformed one is treated as absent. The result is
// never nil.
func Decode(f domain.ProductFields) []domain.LineItem {
	if items, ok := decodeDetailed(f.DetailedProducts); ok {
		return items
	}
	if name := strings.TrimSpace(f.Product); name != "" {
		return []domain.LineItem{{
			Name:   name,
			Weight: strings.TrimSpace(f.Weight),
			Note:   strings.TrimSpace(f.Note),
		}}
	}
	return splitNames(f.Products)
}

func decodeDetailed(raw string) ([]domain.LineItem, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, false
	}
	var entries []*detailed
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	items := make([]domain.LineItem, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		name := strings.TrimSpace(string(e.Name))
		if name == "" {
			name = strings.TrimSpace(string(e.Product))
		}
		if name == "" {
			continue
		}
		items = append(items, domain.LineItem{
			Name:   name,
			Weight: strings.TrimSpace(string(e.Weight)),
			Note:   strings.TrimSpace(string(e.Note)),
		})
	}
	return items, true
}

func splitNames(s string) []domain.LineItem {
	items := make([]domain.LineItem, 0)
	for _, line := range strings.Split(s, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			items = append(items, domain.LineItem{Name: name})
		}
	}
	return items
}

// Complete reports whether it has both a name and a weight.
func Complete(it domain.LineItem) bool {
	return strings.TrimSpace(it.Name) != "" && strings.TrimSpace(it.Weight) != ""
}

// Encode writes items in all three encodings. Items missing a name or a
// weight are incomplete and left out of every form.
func Encode(items []domain.LineItem) domain.ProductFields {
	kept := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if !Complete(it) {
			continue
		}
		kept = append(kept, domain.LineItem{
			Name:   strings.TrimSpace(it.Name),
			Weight: strings.TrimSpace(it.Weight),
			Note:   strings.TrimSpace(it.Note),
		})
	}

	var f domain.ProductFields
	f.Products = strings.Join(Names(kept), "\n")
	if len(kept) > 0 {
		f.Product = kept[0].Name
		f.Weight = kept[0].Weight
		f.Note = kept[0].Note
	}
	// LineItem only holds strings, Marshal cannot fail.
	b, _ := json.Marshal(kept)
	f.DetailedProducts = string(b)
	return f
}

// Names returns the item names in order.
func Names(items []domain.LineItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if n := strings.TrimSpace(it.Name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Preview joins item names with ", " and truncates to maxLen runes, ending
// with "..." when cut.
func Preview(items []domain.LineItem, maxLen int) string {
	s := strings.Join(Names(items), ", ")
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
