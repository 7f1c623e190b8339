package domain

import "testing"

func TestInitials(t *testing.T) {
	testCases := map[string]struct {
		name string
		want string
	}{
		"two_names":   {"Alice Smith", "AS"},
		"single_name": {"alice", "A"},
		"three_names": {"Ana Maria Costa", "AM"},
		"empty":       {"", "?"},
		"whitespace":  {"   ", "?"},
		"lowercase":   {"jo singh", "JS"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := Initials(tc.name); got != tc.want {
				t.Fatalf("Initials(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestSummaryFallsBackToUsername(t *testing.T) {
	u := User{ID: "u1", Username: "alice", Email: "a@x.com"}
	s := u.Summary()
	if s.FullName != "alice" {
		t.Fatalf("expected username fallback, got %q", s.FullName)
	}
	if s.Initials != "A" {
		t.Fatalf("unexpected initials %q", s.Initials)
	}
}

func TestSummaryUsesFullName(t *testing.T) {
	u := User{ID: "u1", Username: "alice", FullName: "Alice Smith"}
	s := u.Summary()
	if s.FullName != "Alice Smith" || s.Initials != "AS" {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
