package cache

import (
	"strings"
	"testing"
)

func TestBuildKeyDeterministicUnderPermutation(t *testing.T) {
	a := BuildKey(ScopeForecast, "tijucas-sc", map[string]any{
		"days":  7,
		"units": "metric",
	})
	b := BuildKey(ScopeForecast, "tijucas-sc", map[string]any{
		"units": "metric",
		"days":  7,
	})
	if a != b {
		t.Errorf("keys differ for permuted params:\n%s\n%s", a, b)
	}
}

func TestBuildKeySortsSectionLists(t *testing.T) {
	tenant := "tijucas-sc|America/Sao_Paulo|active|hash"
	a := BuildKey(ScopeBundle, tenant, map[string]any{
		"sections": []string{"insights", "current", "daily"},
		"days":     7,
		"units":    "metric",
	})
	b := BuildKey(ScopeBundle, tenant, map[string]any{
		"sections": []string{"daily", "current", "insights"},
		"days":     7,
		"units":    "metric",
	})
	if a != b {
		t.Errorf("keys differ for reordered sections:\n%s\n%s", a, b)
	}
}

func TestBuildKeyNormalizesSegments(t *testing.T) {
	a := BuildKey("Bundle", "  Tijucas  SC ", map[string]any{"Units": "Metric"})
	b := BuildKey("bundle", "tijucas-sc", map[string]any{"units": "metric"})
	if a != b {
		t.Errorf("normalization mismatch:\n%s\n%s", a, b)
	}
}

func TestBuildKeyDistinguishesRequests(t *testing.T) {
	base := BuildKey(ScopeBundle, "tijucas-sc", map[string]any{"days": 7})
	cases := map[string]string{
		"different scope":  BuildKey(ScopeHome, "tijucas-sc", map[string]any{"days": 7}),
		"different tenant": BuildKey(ScopeBundle, "global", map[string]any{"days": 7}),
		"different param":  BuildKey(ScopeBundle, "tijucas-sc", map[string]any{"days": 14}),
	}
	for name, key := range cases {
		if key == base {
			t.Errorf("%s produced identical key %s", name, key)
		}
	}
}

func TestBuildKeyCarriesSchemaVersion(t *testing.T) {
	key := BuildKey(ScopeHome, "global", nil)
	if !strings.HasSuffix(key, ":"+schemaVersion) {
		t.Errorf("key %q missing schema version suffix", key)
	}
}
