package jsonpath

import (
	"encoding/json"
	"reflect"
	"testing"
)

// tree decodes a JSON literal into the generic representation so expected
// values compare equal to Set's output.
func tree(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

func TestSet(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		path  string
		value any
		want  string
	}{
		{
			name:  "creates nested object and array",
			in:    `{}`,
			path:  "a.b.0.c",
			value: "x",
			want:  `{"a":{"b":[{"c":"x"}]}}`,
		},
		{
			name:  "overwrites leaf",
			in:    `{"a":{"b":1}}`,
			path:  "a.b",
			value: float64(2),
			want:  `{"a":{"b":2}}`,
		},
		{
			name:  "preserves siblings off the path",
			in:    `{"a":{"b":1,"keep":"me"},"other":[1,2]}`,
			path:  "a.b",
			value: float64(9),
			want:  `{"a":{"b":9,"keep":"me"},"other":[1,2]}`,
		},
		{
			name:  "assigns existing array element",
			in:    `{"posts":[{"title":"old"},{"title":"two"}]}`,
			path:  "posts.0.title",
			value: "new",
			want:  `{"posts":[{"title":"new"},{"title":"two"}]}`,
		},
		{
			name:  "appends at index equal to length",
			in:    `{"items":["a"]}`,
			path:  "items.1",
			value: "b",
			want:  `{"items":["a","b"]}`,
		},
		{
			name:  "pads with null beyond length",
			in:    `{"items":["a"]}`,
			path:  "items.3",
			value: "d",
			want:  `{"items":["a",null,null,"d"]}`,
		},
		{
			name:  "primitive intermediate replaced by container",
			in:    `{"a":"scalar"}`,
			path:  "a.b",
			value: "x",
			want:  `{"a":{"b":"x"}}`,
		},
		{
			name:  "numeric-looking key on a map stays a key",
			in:    `{"m":{"0":"zero"}}`,
			path:  "m.0",
			value: "new",
			want:  `{"m":{"0":"new"}}`,
		},
		{
			name:  "partially numeric segment is a key",
			in:    `{"a":[1,2]}`,
			path:  "a.1x",
			value: "v",
			want:  `{"a":{"1x":"v"}}`,
		},
		{
			name:  "top-level array",
			in:    `[{"v":1},{"v":2}]`,
			path:  "1.v",
			value: float64(3),
			want:  `[{"v":1},{"v":3}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Set(tree(t, tt.in), tt.path, tt.value)
			if err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if want := tree(t, tt.want); !reflect.DeepEqual(got, want) {
				t.Errorf("Set = %#v, want %#v", got, want)
			}
		})
	}
}

func TestSetEmptyPath(t *testing.T) {
	if _, err := Set(map[string]any{}, "", "v"); err == nil {
		t.Fatal("empty path did not error")
	}
}

func TestSetIndexLimit(t *testing.T) {
	if _, err := Set(tree(t, `{"a":[]}`), "a.100000", "v"); err == nil {
		t.Fatal("oversized index did not error")
	}
}

func TestSetDoesNotMutateInput(t *testing.T) {
	orig := tree(t, `{"a":{"b":1,"sib":[1,2,3]},"c":"keep"}`)
	snapshot := tree(t, `{"a":{"b":1,"sib":[1,2,3]},"c":"keep"}`)

	got, err := Set(orig, "a.b", float64(2))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(orig, snapshot) {
		t.Errorf("input mutated: %#v", orig)
	}
	if reflect.DeepEqual(got, orig) {
		t.Error("output equals input, expected changed copy")
	}

	// Untouched branches are shared, not cloned.
	origSib := orig.(map[string]any)["a"].(map[string]any)["sib"].([]any)
	gotSib := got.(map[string]any)["a"].(map[string]any)["sib"].([]any)
	if &origSib[0] != &gotSib[0] {
		t.Error("sibling slice was cloned instead of shared")
	}
}

func TestSetArrayElementCopyOnWrite(t *testing.T) {
	orig := tree(t, `{"posts":[{"title":"one"},{"title":"two"}]}`)

	got, err := Set(orig, "posts.0.title", "changed")
	if err != nil {
		t.Fatal(err)
	}
	if title := orig.(map[string]any)["posts"].([]any)[0].(map[string]any)["title"]; title != "one" {
		t.Errorf("input array element mutated: %v", title)
	}
	if title := got.(map[string]any)["posts"].([]any)[0].(map[string]any)["title"]; title != "changed" {
		t.Errorf("output element = %v, want changed", title)
	}
}
