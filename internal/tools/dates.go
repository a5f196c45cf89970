// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE SUBTRACTION TOOL
// =============================================================================

// DateSubtractTool builds the subtract_dates_return_years tool.
func DateSubtractTool() *Tool {
	return &Tool{
		Definition: DateSubtractDefinition(),
		Exec:       subtractDatesExec,
	}
}

func subtractDatesExec(ctx context.Context, args map[string]any) Result {
	later, hasLater := args["later_date"]
	earlier, hasEarlier := args["earlier_date"]
	if !hasLater || !hasEarlier {
		return Errorf("Missing required arguments later_date and/or earlier_date")
	}
	return SubtractDatesReturnYears(later, earlier)
}

// SubtractDatesReturnYears computes the whole-year difference between
// two dates, rounded down. Models produce the inputs, so the function
// is deliberately lenient about their shape: each date may be a JSON
// object, a string holding a JSON or quasi-Python object literal, an
// object nested under a "date" key, or a plain "YYYY-MM-DD" string.
func SubtractDatesReturnYears(laterRaw, earlierRaw any) Result {
	if laterRaw == nil || earlierRaw == nil {
		return Errorf("Invalid date: one or both dates are missing")
	}

	laterObj := normalizeDate(laterRaw)
	earlierObj := normalizeDate(earlierRaw)

	if missingDateKeys(laterObj) {
		return Errorf("Invalid date: one or more keys missing in later date")
	}
	if missingDateKeys(earlierObj) {
		return Errorf("Invalid date: one or more keys missing in earlier date")
	}

	if nullDateKeys(laterObj) {
		return Errorf("Invalid date: one or more keys is null in later date")
	}
	if nullDateKeys(earlierObj) {
		return Errorf("Invalid date: one or more keys is null in earlier date")
	}

	later, err := buildDate(laterObj)
	if err != nil {
		return Errorf("Failed to create date object: invalid value for year, month, or day: %v", err)
	}
	earlier, err := buildDate(earlierObj)
	if err != nil {
		return Errorf("Failed to create date object: invalid value for year, month, or day: %v", err)
	}

	// Both dates are midnight UTC, so whole-day epochs subtract
	// exactly. time.Duration caps near 292 years and would clip the
	// difference for pairs further apart.
	days := int(later.Unix()/86400 - earlier.Unix()/86400)
	years := floorDiv(days, 365)

	return Success(
		fmt.Sprintf("Difference in years between dates %s and %s is %d.",
			earlier.Format("2006-01-02"), later.Format("2006-01-02"), years),
		fmt.Sprintf("Difference in years between %s and %s",
			later.Format("2006-01-02"), earlier.Format("2006-01-02")),
	)
}

// =============================================================================
// INPUT NORMALIZATION
// =============================================================================

// normalizeDate coerces a raw date value toward a map with year/month/
// day keys. Values it cannot make sense of pass through and fail the
// key checks above, which own the error wording.
func normalizeDate(raw any) map[string]any {
	// A string may hold an object literal. Models fine-tuned on Python
	// sometimes emit single-quoted ones, so try that form too.
	if s, ok := raw.(string); ok {
		if obj := parseObjectLiteral(s); obj != nil {
			raw = obj
		}
	}

	// Unwrap {"date": {...}} nesting.
	if m, ok := raw.(map[string]any); ok {
		if inner, exists := m["date"]; exists {
			raw = inner
			if s, ok := raw.(string); ok {
				if obj := parseObjectLiteral(s); obj != nil {
					raw = obj
				}
			}
		}
	}

	// A remaining string may be a plain YYYY-MM-DD date.
	if s, ok := raw.(string); ok {
		parts := strings.Split(s, "-")
		if len(parts) >= 3 {
			return map[string]any{
				"year":  parts[0],
				"month": parts[1],
				"day":   parts[2],
			}
		}
		return nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// parseObjectLiteral decodes a JSON object string, retrying with
// single quotes rewritten to double quotes. Returns nil when the
// string is not an object literal at all.
func parseObjectLiteral(s string) map[string]any {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		return obj
	}
	if err := json.Unmarshal([]byte(strings.ReplaceAll(trimmed, "'", `"`)), &obj); err == nil {
		return obj
	}
	return nil
}

func missingDateKeys(m map[string]any) bool {
	if m == nil {
		return true
	}
	for _, key := range []string{"year", "month", "day"} {
		if _, ok := m[key]; !ok {
			return true
		}
	}
	return false
}

func nullDateKeys(m map[string]any) bool {
	return m["year"] == nil || m["month"] == nil || m["day"] == nil
}

// buildDate validates the components and constructs a calendar date.
func buildDate(m map[string]any) (time.Time, error) {
	year, err := asInt(m["year"])
	if err != nil {
		return time.Time{}, err
	}
	month, err := asInt(m["month"])
	if err != nil {
		return time.Time{}, err
	}
	day, err := asInt(m["day"])
	if err != nil {
		return time.Time{}, err
	}

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be in 1..12")
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range days (Feb 30 becomes Mar 2);
	// reject anything that did not round-trip.
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, fmt.Errorf("day is out of range for month")
	}
	return d, nil
}

// asInt accepts the numeric shapes JSON decoding and string splitting
// produce.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid literal %q", n.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("invalid literal %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

// floorDiv divides rounding toward negative infinity, so a reversed
// date order yields the same value the calculation is documented to
// produce instead of truncating toward zero.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
