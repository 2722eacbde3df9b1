package main

import "testing"

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"sk-proj-abcdefghijkl", "sk-...ijkl"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"chat": false, "serve": false, "mcp": false, "key": false, "wallet": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
