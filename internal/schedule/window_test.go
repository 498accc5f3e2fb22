package schedule

import "testing"

func TestIsActionableBoundary(t *testing.T) {
	today := date(t, "2026-03-01")
	tests := []struct {
		date string
		want bool
	}{
		{"2025-12-25", true},
		{"2026-02-01", true},
		{"2026-02-28", true},
		{"2026-03-01", true},
		{"2026-03-02", true},
		{"2026-03-03", true},
		{"2026-03-04", false},
		{"2026-04-01", false},
	}
	for _, tt := range tests {
		if got := IsActionable(date(t, tt.date), today); got != tt.want {
			t.Errorf("IsActionable(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestCommentsOpen(t *testing.T) {
	today := date(t, "2026-03-15")
	tests := []struct {
		date string
		want bool
	}{
		{"2026-03-01", true},
		{"2026-03-31", true},
		{"2026-02-28", false},
		{"2026-04-01", false},
		{"2025-03-15", false},
	}
	for _, tt := range tests {
		if got := CommentsOpen(date(t, tt.date), today); got != tt.want {
			t.Errorf("CommentsOpen(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}
