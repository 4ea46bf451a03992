package inventory

import (
	"regexp"
	"strings"
)

// serialMarker matches "s/n" or "sn" as a standalone marker, optional
// separators, then captures the next token.
var serialMarker = regexp.MustCompile(`(?i)(?:^|[^\pL\pN])s/?n(?:[\s:#.\-]+|$)([^\s,;]*)`)

// ExtractSerial returns the serial number carried by free text: the first
// token after an "s/n" or "sn" marker, otherwise the trimmed text itself.
//
//	ExtractSerial("Bosch drill S/N: AB-1234, blue") == "AB-1234"
//	ExtractSerial("  XK-9  ")                       == "XK-9"
func ExtractSerial(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if m := serialMarker.FindStringSubmatch(text); m != nil && m[1] != "" {
		return m[1]
	}
	return text
}

// ResolveUnit picks the catalog row to issue for a request.
//
// Rows are scanned in storage order. A row is eligible when its display name
// matches and it holds at least minQty units (at least one). The first
// eligible row whose extracted serial equals preferredSerial wins outright;
// otherwise the first eligible row is used. The fallback tie-break is an
// artifact of storage order, not a FIFO guarantee.
func ResolveUnit(items []CatalogItem, displayName, preferredSerial string, minQty int) (*CatalogItem, bool) {
	if minQty < 1 {
		minQty = 1
	}
	displayName = strings.TrimSpace(displayName)
	preferredSerial = ExtractSerial(preferredSerial)

	fallback := -1
	for i := range items {
		it := &items[i]
		if it.DisplayName != displayName || it.CurrentStock < minQty {
			continue
		}
		if preferredSerial != "" && it.EffectiveSerial() == preferredSerial {
			return it, true
		}
		if fallback < 0 {
			fallback = i
		}
	}
	if fallback < 0 {
		return nil, false
	}
	return &items[fallback], true
}

// AvailableUnits lists rows of a display name that have stock, in storage
// order.
func AvailableUnits(items []CatalogItem, displayName string) []CatalogItem {
	displayName = strings.TrimSpace(displayName)
	out := []CatalogItem{}
	for _, it := range items {
		if it.DisplayName == displayName && it.CurrentStock > 0 {
			out = append(out, it)
		}
	}
	return out
}

// largestUnit returns the highest single-row stock for a display name and
// whether the name exists in the catalog at all.
func largestUnit(items []CatalogItem, displayName string) (int, bool) {
	best, known := 0, false
	for _, it := range items {
		if it.DisplayName != displayName {
			continue
		}
		known = true
		if it.CurrentStock > best {
			best = it.CurrentStock
		}
	}
	return best, known
}
