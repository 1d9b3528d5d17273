package config

import (
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("ZC_TEST_HOST", "db.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "set variable", in: "host: ${ZC_TEST_HOST}", want: "host: db.internal"},
		{name: "set variable ignores default", in: "host: ${ZC_TEST_HOST:localhost}", want: "host: db.internal"},
		{name: "unset with default", in: "port: ${ZC_TEST_PORT:5432}", want: "port: 5432"},
		{name: "unset with empty default", in: "key: ${ZC_TEST_KEY:}", want: "key: "},
		{name: "unset without default keeps placeholder", in: "key: ${ZC_TEST_KEY}", want: "key: ${ZC_TEST_KEY}"},
		{name: "multiple placeholders", in: "${ZC_TEST_HOST}:${ZC_TEST_PORT:5432}", want: "db.internal:5432"},
		{name: "no placeholders", in: "plain: value", want: "plain: value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnv(tt.in); got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
