package agents

import "testing"

func TestExtractScopeTotalKnownField(t *testing.T) {
	data := map[string]interface{}{"scope1_total": 50.0, "scope2_total": 60.0}
	v, ok := extractScopeTotal(data, 1)
	if !ok || v != 50 {
		t.Fatalf("scope1: got (%v, %v), want (50, true)", v, ok)
	}
	v, ok = extractScopeTotal(data, 2)
	if !ok || v != 60 {
		t.Fatalf("scope2: got (%v, %v), want (60, true)", v, ok)
	}
}

func TestExtractScopeTotalKeySearch(t *testing.T) {
	data := map[string]interface{}{
		"diesel_scope1_tco2e": 30.0,
		"gas_scope1_tco2e":    20.0,
		"grid_scope2_tco2e":   60.0,
	}
	v, ok := extractScopeTotal(data, 1)
	if !ok || v != 50 {
		t.Fatalf("key-search sum: got (%v, %v), want (50, true)", v, ok)
	}
}

func TestExtractScopeTotalLastResortSumsEverything(t *testing.T) {
	data := map[string]interface{}{"a": 1.0, "b": 2.0, "label": "not a number"}
	v, ok := extractScopeTotal(data, 1)
	if !ok || v != 3 {
		t.Fatalf("last-resort sum: got (%v, %v), want (3, true)", v, ok)
	}
}

func TestExtractScopeTotalNoNumericContent(t *testing.T) {
	data := map[string]interface{}{"note": "nothing numeric here"}
	if _, ok := extractScopeTotal(data, 1); ok {
		t.Fatalf("expected ok=false for a record with no numeric fields")
	}
}

func TestExtractScopeTotalCoercesShapes(t *testing.T) {
	data := map[string]interface{}{"scope1_total": "42.5"}
	v, ok := extractScopeTotal(data, 1)
	if !ok || v != 42.5 {
		t.Fatalf("string coercion: got (%v, %v), want (42.5, true)", v, ok)
	}
}

func TestExtractCreditTotal(t *testing.T) {
	v, ok := extractCreditTotal(map[string]interface{}{"carbon_credits_used": 25.0})
	if !ok || v != 25 {
		t.Fatalf("known field: got (%v, %v), want (25, true)", v, ok)
	}

	v, ok = extractCreditTotal(map[string]interface{}{"q1_credit_spend": 10.0})
	if !ok || v != 10 {
		t.Fatalf("key search: got (%v, %v), want (10, true)", v, ok)
	}

	// No sum-everything pass for credits.
	if _, ok := extractCreditTotal(map[string]interface{}{"scope1_total": 50.0}); ok {
		t.Fatalf("credits must not fall back to summing unrelated fields")
	}
}
