package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

const (
	MsgMissingFields  = "Please fill in all fields."
	MsgInvalidNumeric = "Please enter valid numeric values for numerical fields."
)

// Reason labels a failed check, used for metrics and events.
type Reason string

const (
	ReasonMissing Reason = "missing"
	ReasonNumeric Reason = "numeric"
	ReasonArea    Reason = "area"
	ReasonItem    Reason = "item"
)

// Result is the outcome of validating one RawInput. Exactly one of Input
// and Errors is set.
type Result struct {
	Input   *models.ValidatedInput
	Errors  []string
	Reasons []Reason
}

func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) add(reason Reason, msg string) {
	r.Errors = append(r.Errors, msg)
	r.Reasons = append(r.Reasons, reason)
}

// Validator checks raw form input against the categorical allow-lists.
type Validator struct {
	areas *AllowList
	items *AllowList
}

func NewValidator(areas, items *AllowList) *Validator {
	return &Validator{areas: areas, items: items}
}

// Default returns a validator over the compiled-in allow-lists.
func Default() *Validator {
	return NewValidator(allowedAreas, allowedItems)
}

func (v *Validator) Areas() *AllowList { return v.areas }
func (v *Validator) Items() *AllowList { return v.items }

// Validate runs the presence, numeric, area and item checks in that order.
// Checks do not short-circuit; an empty field is skipped by the numeric and
// categorical checks but still trips the presence check.
func (v *Validator) Validate(raw models.RawInput) *Result {
	res := &Result{}

	for _, value := range raw.Values() {
		if value == "" {
			res.add(ReasonMissing, MsgMissingFields)
			break
		}
	}

	year, rainfall, pesticides, temperature, err := parseNumeric(raw)
	if err != nil {
		res.add(ReasonNumeric, MsgInvalidNumeric)
	}

	if raw.Area != "" && !v.areas.Contains(raw.Area) {
		res.add(ReasonArea, fmt.Sprintf("Entered Area '%s' is not valid. Please enter a valid area like: %s", raw.Area, v.areas))
	}

	if raw.Item != "" && !v.items.Contains(raw.Item) {
		res.add(ReasonItem, fmt.Sprintf("Entered Item '%s' is not valid. Please enter a valid item like: %s", raw.Item, v.items))
	}

	if !res.Valid() {
		return res
	}

	res.Input = &models.ValidatedInput{
		Year:        year,
		Rainfall:    rainfall,
		Pesticides:  pesticides,
		Temperature: temperature,
		Area:        raw.Area,
		Item:        raw.Item,
	}
	return res
}

// parseNumeric coerces the non-empty numeric fields, stopping at the first
// failure.
func parseNumeric(raw models.RawInput) (year int, rainfall, pesticides, temperature float64, err error) {
	if raw.Year != "" {
		if year, err = parseInt(raw.Year); err != nil {
			return
		}
	}
	if raw.Rainfall != "" {
		if rainfall, err = parseFloat(raw.Rainfall); err != nil {
			return
		}
	}
	if raw.Pesticides != "" {
		if pesticides, err = parseFloat(raw.Pesticides); err != nil {
			return
		}
	}
	if raw.Temperature != "" {
		temperature, err = parseFloat(raw.Temperature)
	}
	return
}

// parseInt accepts an optional sign and decimal digits, with single
// underscores allowed between digits ("2_020").
func parseInt(s string) (int, error) {
	digits, err := stripDigitSeparators(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(digits, 10, 0)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// parseFloat accepts decimal notation with surrounding whitespace and digit
// separators. Hexadecimal floats, NaN and infinities are rejected.
func parseFloat(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if isHex(trimmed) {
		return 0, fmt.Errorf("hexadecimal value %q", s)
	}
	digits, err := stripDigitSeparators(trimmed)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return f, nil
}

func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// stripDigitSeparators removes underscores that sit between two digits and
// fails on any other underscore.
func stripDigitSeparators(s string) (string, error) {
	if !strings.Contains(s, "_") {
		return s, nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", fmt.Errorf("misplaced digit separator in %q", s)
		}
	}
	return strings.ReplaceAll(s, "_", ""), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
