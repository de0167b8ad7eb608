package cache

import "testing"

func TestKeyDeterministic(t *testing.T) {
	a := Key("pool-1", map[string]string{"from": "100", "to": "200", "limit": "50"})
	b := Key("pool-1", map[string]string{"limit": "50", "to": "200", "from": "100"})
	if a != b {
		t.Errorf("same params in different order produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestKeyDistinguishesScopeAndParams(t *testing.T) {
	base := Key("pool-1", map[string]string{"from": "100"})
	if other := Key("pool-2", map[string]string{"from": "100"}); other == base {
		t.Error("different scope IDs must produce different keys")
	}
	if other := Key("pool-1", map[string]string{"from": "101"}); other == base {
		t.Error("different param values must produce different keys")
	}
	if other := Key("pool-1", map[string]string{"to": "100"}); other == base {
		t.Error("different param names must produce different keys")
	}
}

func TestKeyScopeSeparatorSafety(t *testing.T) {
	// A scope carrying the separator characters must not alias a different
	// scope+params combination that renders to the same byte stream.
	a := Key("pool-1|from=100", nil)
	b := Key("pool-1", map[string]string{"from": "100"})
	if a == b {
		t.Error("scope containing separators collided with scope+params")
	}

	c := Key("pool-1|", map[string]string{"x": "1"})
	d := Key("pool-1", map[string]string{"|x": "1"})
	if c == d {
		t.Error("trailing separator in scope collided with prefixed param name")
	}
}

func TestCanonicalParams(t *testing.T) {
	got := CanonicalParams(map[string]string{"to": "200", "from": "100"})
	want := "from=100&to=200"
	if got != want {
		t.Errorf("CanonicalParams = %q, want %q", got, want)
	}
	if got := CanonicalParams(nil); got != "" {
		t.Errorf("CanonicalParams(nil) = %q, want empty", got)
	}
}
