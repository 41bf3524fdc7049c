package storage

import (
	"testing"
)

func TestLogs_AppendStripesOffsets(t *testing.T) {
	tests := []struct {
		name   string
		slot   int
		stride int
		want   []int64
	}{
		{"single node", 0, 1, []int64{1, 2, 3}},
		{"slot 0 of 3", 0, 3, []int64{3, 6, 9}},
		{"slot 1 of 3", 1, 3, []int64{1, 4, 7}},
		{"slot 2 of 3", 2, 3, []int64{2, 5, 8}},
		{"zero stride", 5, 0, []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := NewLogs()
			for i, want := range tt.want {
				got := logs.Append("k1", int64(i), tt.slot, tt.stride)
				if got != want {
					t.Errorf("append %d: expected offset %d, got %d", i, want, got)
				}
			}
		})
	}
}

func TestLogs_AppendAfterMergedEntries(t *testing.T) {
	logs := NewLogs()
	logs.Insert("k1", 2, 20) // from the node in slot 2
	logs.Insert("k1", 5, 50)

	got := logs.Append("k1", 60, 1, 3)
	if got != 7 {
		t.Fatalf("expected offset 7 after merged entries, got %d", got)
	}
	if got <= 5 {
		t.Fatal("appended offset must exceed every existing offset")
	}
}

func TestLogs_InsertKeepsExisting(t *testing.T) {
	logs := NewLogs()
	if !logs.Insert("k1", 3, 30) {
		t.Fatal("expected first insert to succeed")
	}
	if logs.Insert("k1", 3, 99) {
		t.Fatal("expected conflicting insert to be rejected")
	}
	entries := logs.Entries("k1")
	if len(entries) != 1 || entries[0].Msg != 30 {
		t.Errorf("expected original message to survive, got %v", entries)
	}
}

func TestLogs_PollWindow(t *testing.T) {
	logs := NewLogs()
	for i := 0; i < 15; i++ {
		logs.Append("k1", int64(100+i), 0, 1)
	}

	got := logs.Poll("k1", 3, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Offset != int64(3+i) || e.Msg != int64(102+i) {
			t.Errorf("entry %d: got %+v", i, e)
		}
	}

	if n := len(logs.Poll("k1", 1, 0)); n != DefaultPollWindow {
		t.Errorf("expected default window %d, got %d", DefaultPollWindow, n)
	}
	if n := len(logs.Poll("k1", 100, 5)); n != 0 {
		t.Errorf("expected no entries past the end, got %d", n)
	}
	if got := logs.Poll("missing", 0, 5); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice for missing key, got %v", got)
	}
}

func TestLogs_PollSkipsGaps(t *testing.T) {
	logs := NewLogs()
	logs.Insert("k1", 2, 20)
	logs.Insert("k1", 9, 90)

	got := logs.Poll("k1", 3, 10)
	if len(got) != 1 || got[0].Offset != 9 {
		t.Errorf("expected only offset 9, got %v", got)
	}
}

func TestLogs_CommitIsMonotonic(t *testing.T) {
	logs := NewLogs()
	if _, ok := logs.Committed("k1"); ok {
		t.Fatal("expected no commit for fresh key")
	}

	logs.Commit("k1", 5)
	logs.Commit("k1", 3)

	got, ok := logs.Committed("k1")
	if !ok || got != 5 {
		t.Errorf("expected committed 5, got %d (ok=%v)", got, ok)
	}
}

func TestLogs_EmptyAndCopy(t *testing.T) {
	logs := NewLogs()
	if !logs.Empty() {
		t.Fatal("expected new logs to be empty")
	}
	logs.Commit("k1", 1)
	if logs.Empty() {
		t.Fatal("a commit mark makes logs non-empty")
	}

	logs.Append("k2", 7, 0, 1)
	c := logs.Copy()
	c.Append("k2", 8, 0, 1)

	if logs.Len() != 1 || c.Len() != 2 {
		t.Errorf("copy is not independent: original %d, copy %d", logs.Len(), c.Len())
	}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "k1" || keys[1] != "k2" {
		t.Errorf("unexpected keys %v", keys)
	}
}
