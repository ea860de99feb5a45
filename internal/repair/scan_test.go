package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBalancedEnd(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		start    int
		expected int
	}{
		{"simple object", `{"a":1}`, 0, 6},
		{"nested", `{"a":[1,{"b":2}]} tail`, 0, 16},
		{"brace inside string", `{"a":"}"}`, 0, 8},
		{"escaped quote", `{"a":"\"}"}`, 0, 10},
		{"unterminated", `{"a":[1,2}`, 0, -1},
		{"never closes", `{"a":1`, 0, -1},
		{"not a bracket", `abc`, 0, -1},
		{"array", `[1,[2]]`, 0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, balancedEnd(tt.input, tt.start))
		})
	}
}

func TestCloseOpen(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"balanced untouched", `{"a":1}`, `{"a":1}`},
		{"open string", `{"a":["x`, `{"a":["x"]}`},
		{"dangling backslash", `{"a":"x\`, `{"a":"x"}`},
		{"dangling comma", `{"a":1, `, `{"a":1}`},
		{"dangling colon", `{"a":`, `{"a":null}`},
		{"nested closers", `{"q":[{"c":[1`, `{"q":[{"c":[1]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, closeOpen(tt.input))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trailing comma in array", `[1,2,]`, `[1,2]`},
		{"trailing comma in object", `{"a":1,}`, `{"a":1}`},
		{"duplicate comma", `[1,,2]`, `[1,2]`},
		{"missing comma between objects", `[{}{}]`, `[{},{}]`},
		{"missing comma array then object", `[[1]{"a":1}]`, `[[1],{"a":1}]`},
		{"missing comma between strings", `["a" "b"]`, `["a","b"]`},
		{"bare key", `{a:1}`, `{"a":1}`},
		{"single quotes", `{'a':'b'}`, `{"a":"b"}`},
		{"double quote inside single quotes", `{'a':'say "hi"'}`, `{"a":"say \"hi\""}`},
		{"line comment", "{\"a\":1 // note\n}", "{\"a\":1 \n}"},
		{"block comment", `{"a":/* x */1}`, `{"a":1}`},
		{"control char in string", "{\"a\":\"x\ty\"}", `{"a":"x y"}`},
		{"python literals", `[True,None,False]`, `[true,null,false]`},
		{"commas inside strings kept", `{"a":"1,,2,]"}`, `{"a":"1,,2,]"}`},
		{"missing value", `{"a":,"b":1}`, `{"a":null,"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitize(tt.input))
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}"))
}

func TestCommaPositions(t *testing.T) {
	assert.Equal(t, []int{2, 10}, commaPositions(`[1,"a,b,c",2]`))
}
