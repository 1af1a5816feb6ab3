// Package materialtext reads free-text "materials used" descriptions such as
// "2 pincel, 1/3 litro resina". It only classifies and validates quantities;
// it never touches stock.
package materialtext

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FallbackName is used when nothing but numbers and units remain in a segment.
const FallbackName = "material varios"

// Items sold and consumed in whole units. A segment mentioning any of them
// must carry an integer quantity.
var wholeUnitKeywords = []string{
	"pincel", "brocha", "lija", "espátula", "clavo", "tornillo",
	"destornillador", "martillo", "taladro", "sierra", "cutter",
	"rodillo", "guante", "mascarilla", "lente",
}

var (
	fractionPattern = regexp.MustCompile(`\b\d+/\d+\b`)
	numberPattern   = regexp.MustCompile(`\b\d+\.?\d*\b`)
	unitPattern     = regexp.MustCompile(`\b(litro|kg|kilo|gramo|metro|cm|mm|ml|centimetro)s?\b`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

type QuantityKind string

const (
	KindNone     QuantityKind = ""
	KindWhole    QuantityKind = "entero"
	KindDecimal  QuantityKind = "decimal"
	KindFraction QuantityKind = "fraccion"
)

var ErrZeroDenominator = errors.New("denominator cannot be zero")

// WholeUnitError reports a fractional quantity on a whole-unit material.
type WholeUnitError struct {
	Material string
	Quantity string
}

func (e *WholeUnitError) Error() string {
	return fmt.Sprintf("material '%s' requires a whole quantity, got %s", e.Material, e.Quantity)
}

// Item is one parsed segment.
type Item struct {
	Segment   string          `json:"segment"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Kind      QuantityKind    `json:"kind"`
	WholeUnit bool            `json:"whole_unit"`
}

// HasQuantity reports whether the segment carried any number at all.
func (i Item) HasQuantity() bool { return i.Kind != KindNone }

// Parse splits text on commas and parses every non-empty segment. It stops at
// the first invalid segment and returns the error wrapped with that segment.
func Parse(text string) ([]Item, error) {
	var items []Item
	for _, raw := range strings.Split(text, ",") {
		segment := strings.TrimSpace(raw)
		if segment == "" {
			continue
		}
		item, err := ParseItem(segment)
		if err != nil {
			return items, fmt.Errorf("segment %q: %w", segment, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseItem parses a single segment. A fraction takes precedence over a plain
// number when both appear.
func ParseItem(segment string) (Item, error) {
	text := strings.ToLower(strings.TrimSpace(segment))
	item := Item{
		Segment:   segment,
		Name:      materialName(text),
		WholeUnit: isWholeUnit(text),
	}
	if text == "" {
		return item, nil
	}

	if fraction := fractionPattern.FindString(text); fraction != "" {
		if item.WholeUnit {
			return item, &WholeUnitError{Material: item.Name, Quantity: fraction}
		}
		num, den, _ := strings.Cut(fraction, "/")
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return item, fmt.Errorf("invalid fraction %q: %w", fraction, err)
		}
		d, err := strconv.ParseInt(den, 10, 64)
		if err != nil {
			return item, fmt.Errorf("invalid fraction %q: %w", fraction, err)
		}
		if d == 0 {
			return item, ErrZeroDenominator
		}
		item.Quantity = decimal.NewFromInt(n).Div(decimal.NewFromInt(d))
		item.Kind = KindFraction
		return item, nil
	}

	if number := numberPattern.FindString(text); number != "" {
		q, err := decimal.NewFromString(strings.TrimSuffix(number, "."))
		if err != nil {
			return item, fmt.Errorf("invalid number %q: %w", number, err)
		}
		if !q.IsInteger() {
			if item.WholeUnit {
				return item, &WholeUnitError{Material: item.Name, Quantity: number}
			}
			item.Kind = KindDecimal
		} else {
			item.Kind = KindWhole
		}
		item.Quantity = q
	}
	return item, nil
}

func isWholeUnit(text string) bool {
	for _, keyword := range wholeUnitKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func materialName(text string) string {
	name := fractionPattern.ReplaceAllString(text, "")
	name = numberPattern.ReplaceAllString(name, "")
	name = unitPattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(spacePattern.ReplaceAllString(name, " "))
	if name == "" {
		return FallbackName
	}
	return name
}
