package graph

import (
	"errors"
	"testing"
)

func TestOperation(t *testing.T) {
	tests := []struct {
		script string
		index  int
		want   string
	}{
		{"sample_sql", 3, "sample_sql::op3"},
		{"etl_load", 0, "etl_load::op0"},
		{"a", 42, "a::op42"},
	}
	for _, tt := range tests {
		if got := Operation(tt.script, tt.index); got != tt.want {
			t.Errorf("Operation(%q, %d) = %q, want %q", tt.script, tt.index, got, tt.want)
		}
	}
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		token      string
		wantScript string
		wantIndex  int
		wantErr    bool
	}{
		{"sample_sql::op3", "sample_sql", 3, false},
		{"etl_load::op0", "etl_load", 0, false},
		{"a::b::op7", "a::b", 7, false},
		{"", "", 0, true},
		{"noseparator", "", 0, true},
		{"::op1", "", 0, true},
		{"script::3", "", 0, true},
		{"script::op", "", 0, true},
		{"script::op-1", "", 0, true},
		{"script::opx", "", 0, true},
	}
	for _, tt := range tests {
		script, index, err := ParseOperation(tt.token)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseOperation(%q) error = nil, want error", tt.token)
			} else if !errors.Is(err, ErrBadOperationToken) {
				t.Errorf("ParseOperation(%q) error = %v, want ErrBadOperationToken", tt.token, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOperation(%q) unexpected error: %v", tt.token, err)
			continue
		}
		if script != tt.wantScript || index != tt.wantIndex {
			t.Errorf("ParseOperation(%q) = (%q, %d), want (%q, %d)",
				tt.token, script, index, tt.wantScript, tt.wantIndex)
		}
	}
}

func TestOperationRoundTrip(t *testing.T) {
	token := Operation("nightly::batch", 12)
	script, index, err := ParseOperation(token)
	if err != nil {
		t.Fatalf("ParseOperation(%q) unexpected error: %v", token, err)
	}
	if script != "nightly::batch" || index != 12 {
		t.Errorf("round trip = (%q, %d), want (%q, 12)", script, index, "nightly::batch")
	}
}

func TestSortOperations(t *testing.T) {
	ops := []string{"b::op2", "a::op10", "a::op2", "b::op1", "a::op1"}
	sortOperations(ops)
	want := []string{"a::op1", "a::op2", "a::op10", "b::op1", "b::op2"}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("sortOperations()[%d] = %q, want %q", i, ops[i], want[i])
		}
	}
}
