package planning

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScanObjects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", "no braces at all", nil},
		{"flat", `a {"x": 1} b {"y": 2}`, []string{`{"x": 1}`, `{"y": 2}`}},
		{"nested", `{"a": {"b": {"c": 1}}} tail`, []string{`{"a": {"b": {"c": 1}}}`}},
		{"brace in string", `{"a": "}{"}`, []string{`{"a": "}{"}`}},
		{"escaped quote", `{"a": "say \"}\" ok"}`, []string{`{"a": "say \"}\" ok"}`}},
		{"prose quotes ignored", `he said "hi {" {"k": "v"}`, []string{`{"k": "v"}`}},
		{"unterminated then valid", `{ "open" {"k": 1}`, []string{`{"k": 1}`}},
		{"unclosed brace keeps inner objects", `{ note {"k": 1} and {"j": 2}`, []string{`{"k": 1}`, `{"j": 2}`}},
		{"inner objects of each unclosed level", `{ a {"k": 1} { b {"j": 2}`, []string{`{"k": 1}`, `{"j": 2}`}},
		{"closed before unclosed", `{"a": 1} { {"b": 2}`, []string{`{"a": 1}`, `{"b": 2}`}},
		{"stray closers", `}} {"k": 1} }`, []string{`{"k": 1}`}},
		{"multibyte text", `Café ☕ {"name": "Crème"} fin`, []string{`{"name": "Crème"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidates(tt.in, scanObjects(tt.in))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanObjectsNested(t *testing.T) {
	in := `x {see: {"k": {"deep": 1}}} y`
	objs := scanObjects(in)
	assert.Len(t, objs, 1)
	assert.Equal(t, []string{`{"k": {"deep": 1}}`}, candidates(in, objs[0].inner))
	assert.Equal(t, []string{`{"deep": 1}`}, candidates(in, objs[0].inner[0].inner))
}

func TestScanLinearOnHostileInput(t *testing.T) {
	const n = 200_000
	inputs := map[string]string{
		"open braces":     strings.Repeat("{", n),
		"open with quote": strings.Repeat(`{"`, n/2),
		"deep nesting":    strings.Repeat("{", n/2) + strings.Repeat("}", n/2),
		"deep typed":      strings.Repeat(`{"a":`, n/10) + `{"type":"hotel"}` + strings.Repeat("}", n/10),
	}
	e := seededExtractor(1)
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			_ = scanObjects(in)
			_ = Clean(in)
			_ = e.ExtractDetailed(in)
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}
