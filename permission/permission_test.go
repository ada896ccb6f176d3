package permission

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestResolveUnionsRolesAndDirect(t *testing.T) {
	s := Resolve(
		[][]string{{"user.view", "user.edit"}, {"user.view", "report.view"}},
		[]string{"system.backup"},
	)
	for _, code := range []string{"user.view", "user.edit", "report.view", "system.backup"} {
		if !s.Has(code) {
			t.Fatalf("missing %q in resolved set", code)
		}
	}
	if len(s) != 4 {
		t.Fatalf("len = %d, want 4 (duplicates collapsed)", len(s))
	}
}

func TestAllowedSuperuserShortCircuit(t *testing.T) {
	empty := NewSet()
	if !Allowed(true, empty, "anything.at.all") {
		t.Fatal("superuser denied")
	}
	if Allowed(false, empty, "user.view") {
		t.Fatal("non-superuser allowed without grant")
	}
	if !Allowed(false, NewSet("user.view"), "user.view") {
		t.Fatal("granted permission denied")
	}
}

func TestSetJSONRoundTrip(t *testing.T) {
	s := NewSet("b.perm", "a.perm")
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["a.perm","b.perm"]` {
		t.Fatalf("marshal = %s, want sorted array", data)
	}

	var back Set
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(s, back) {
		t.Fatalf("round trip mismatch: %v != %v", s, back)
	}
}

func TestUnionDoesNotMutate(t *testing.T) {
	a := NewSet("x")
	b := NewSet("y")
	u := a.Union(b)
	if len(a) != 1 || len(b) != 1 {
		t.Fatal("Union mutated an input")
	}
	if !u.Has("x") || !u.Has("y") {
		t.Fatal("Union missing members")
	}
}
