package agents

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Legacy schema adapter. Upstream submitters do not share a field layout,
// so category totals are recovered in three passes of decreasing precision:
//
//  1. exact well-known field names for the category
//  2. sum of numeric fields whose key mentions the category
//  3. sum of every numeric field in the record
//
// Pass 3 exists only for records from the oldest submitters and is isolated
// here so the agents themselves stay schema-explicit.

var scopeFieldNames = map[int][]string{
	1: {"scope1_total", "scope1_emissions", "scope1", "total_scope1", "scope_1_total"},
	2: {"scope2_total", "scope2_emissions", "scope2", "total_scope2", "scope_2_total"},
}

var creditFieldNames = []string{"carbon_credits_used", "carbon_credits", "credits_used", "credit_usage"}

// extractScopeTotal recovers the scope total from a schemaless record.
// ok=false means the record had no numeric content at all.
func extractScopeTotal(data map[string]interface{}, scope int) (float64, bool) {
	for _, name := range scopeFieldNames[scope] {
		if v, ok := numericValue(data[name]); ok {
			return v, true
		}
	}

	marker := "scope" + strconv.Itoa(scope)
	altMarker := "scope_" + strconv.Itoa(scope)
	if sum, found := sumMatching(data, func(key string) bool {
		k := strings.ToLower(key)
		return strings.Contains(k, marker) || strings.Contains(k, altMarker)
	}); found {
		return sum, true
	}

	return sumMatching(data, func(string) bool { return true })
}

// extractCreditTotal recovers the carbon-credit usage from a schemaless
// record. Unlike scope totals there is no sum-everything pass: a record
// without a recognizable credit field simply reports zero usage.
func extractCreditTotal(data map[string]interface{}) (float64, bool) {
	for _, name := range creditFieldNames {
		if v, ok := numericValue(data[name]); ok {
			return v, true
		}
	}
	if sum, found := sumMatching(data, func(key string) bool {
		return strings.Contains(strings.ToLower(key), "credit")
	}); found {
		return sum, true
	}
	return 0, false
}

func sumMatching(data map[string]interface{}, match func(key string) bool) (float64, bool) {
	var sum float64
	found := false
	for k, raw := range data {
		if !match(k) {
			continue
		}
		if v, ok := numericValue(raw); ok {
			sum += v
			found = true
		}
	}
	return sum, found
}

// numericValue coerces the value shapes a JSON record can carry.
func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
