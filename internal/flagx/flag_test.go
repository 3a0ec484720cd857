package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-k", "badger", "-a", "x"},
			allowed: []string{"-k"},
			want:    []string{"-k", "badger"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=alt.json", "-a", "x"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "dash token is not a value",
			args:    []string{"-c", "--config=alt.json"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "--config=alt.json"},
		},
		{
			name:    "value containing dashes in equals form",
			args:    []string{"--config=--weird.json"},
			allowed: []string{"--config"},
			want:    []string{"--config=--weird.json"},
		},
		{
			name:    "order and repeats preserved",
			args:    []string{"-s", "one", "-d", "dsn", "-s", "two"},
			allowed: []string{"-s", "-d"},
			want:    []string{"-s", "one", "-d", "dsn", "-s", "two"},
		},
		{
			name:    "empty",
			args:    nil,
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/etc/drived/short.json"}, "/etc/drived/short.json"},
		{"long", []string{"-config", "/etc/drived/long.json"}, "/etc/drived/long.json"},
		{"long equals", []string{"--config=/etc/drived/eq.json", "-k", "memory"}, "/etc/drived/eq.json"},
		{"absent", []string{"-k", "memory"}, ""},
		{"last wins", []string{"-c", "/a.json", "-config", "/b.json"}, "/b.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JsonConfigFlags(tt.args))
		})
	}
}
