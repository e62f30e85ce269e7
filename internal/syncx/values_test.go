package syncx

import (
	"testing"

	"github.com/google/uuid"
)

func TestGetString(t *testing.T) {
	m := map[string]any{"status": "subscribed", "count": 3}

	if s, ok := GetString(m, "status"); !ok || s != "subscribed" {
		t.Errorf("GetString(status) = %q, %v", s, ok)
	}
	if _, ok := GetString(m, "count"); ok {
		t.Error("GetString should reject non-string values")
	}
	if _, ok := GetString(m, "missing"); ok {
		t.Error("GetString should report missing keys")
	}
}

func TestFirstString(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
		want string
	}{
		{
			name: "first key wins",
			m:    map[string]any{"status": "subscribed", "status_if_new": "pending"},
			want: "subscribed",
		},
		{
			name: "falls back when first is empty",
			m:    map[string]any{"status": "", "status_if_new": "pending"},
			want: "pending",
		},
		{
			name: "nothing found",
			m:    map[string]any{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstString(tt.m, "status", "status_if_new"); got != tt.want {
				t.Errorf("FirstString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseUUID(t *testing.T) {
	id, ok := ParseUUID("c1d9b7dc-a1b2-4c3d-9e8f-7a6b5c4d3e2f")
	if !ok || id != uuid.MustParse("c1d9b7dc-a1b2-4c3d-9e8f-7a6b5c4d3e2f") {
		t.Errorf("ParseUUID() = %v, %v", id, ok)
	}
	if _, ok := ParseUUID(""); ok {
		t.Error("empty string should not parse")
	}
	if _, ok := ParseUUID("not-a-uuid"); ok {
		t.Error("garbage should not parse")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseID(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseID(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
