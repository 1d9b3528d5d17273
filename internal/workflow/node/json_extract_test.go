package node

import (
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "clean object",
			in:   `{"hook":"h"}`,
			want: `{"hook":"h"}`,
		},
		{
			name: "markdown fenced",
			in:   "```json\n{\"hook\":\"h\"}\n```",
			want: `{"hook":"h"}`,
		},
		{
			name: "surrounding prose",
			in:   "好的，以下是结果：{\"score\":90} 希望有帮助",
			want: `{"score":90}`,
		},
		{
			name: "array value",
			in:   "result: [1,2,3]",
			want: "[1,2,3]",
		},
		{
			name: "empty input",
			in:   "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONObject(tt.in); got != tt.want {
				t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateByRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "under budget", in: "短标题", max: 10, want: "短标题"},
		{name: "exact budget", in: "abcde", max: 5, want: "abcde"},
		{name: "ascii overflow", in: "abcdef", max: 3, want: "abc"},
		{name: "multibyte overflow", in: "一二三四五六", max: 4, want: "一二三四"},
		{name: "zero budget", in: "abc", max: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateByRunes(tt.in, tt.max); got != tt.want {
				t.Errorf("TruncateByRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}
