package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("ROLLCALL_TEST_SET", "from_env")

	assert.Equal(t, "from_env", GetEnvOrDefault("ROLLCALL_TEST_SET", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("ROLLCALL_TEST_UNSET", "fallback"))
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"ValidInteger", "42", 0, 42},
		{"NegativeInteger", "-5", 0, -5},
		{"EmptyString", "", 7, 7},
		{"NotANumber", "abc", 7, 7},
		{"Float", "3.14", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInteger(tt.value, tt.defaultValue))
		})
	}
}

func TestParseBoolean(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"True", "true", false, true},
		{"False", "false", true, false},
		{"One", "1", false, true},
		{"Zero", "0", true, false},
		{"EmptyString", "", true, true},
		{"Garbage", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBoolean(tt.value, tt.defaultValue))
		})
	}
}

func TestParseArray(t *testing.T) {
	fallback := []string{"a", "b"}

	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"SingleValue", "x", []string{"x"}},
		{"MultipleValues", "x,y,z", []string{"x", "y", "z"}},
		{"SpacesTrimmed", " x , y ", []string{"x", "y"}},
		{"EmptyString", "", fallback},
		{"OnlySeparators", ",,,", fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseArray(tt.value, fallback))
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name string
		s    string
		sep  string
		want []string
	}{
		{"Basic", "a,b,c", ",", []string{"a", "b", "c"}},
		{"Whitespace", " a , b ", ",", []string{"a", "b"}},
		{"EmptyParts", "a,,b", ",", []string{"a", "b"}},
		{"EmptyInput", "", ",", []string{}},
		{"OtherSeparator", "a|b", "|", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitAndTrim(tt.s, tt.sep))
		})
	}
}
