package sqlscan

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple statements",
			text: "SELECT 1; SELECT 2; SELECT 3",
			want: []string{"SELECT 1", "SELECT 2", "SELECT 3"},
		},
		{
			name: "trailing semicolon",
			text: "SELECT 1;",
			want: []string{"SELECT 1"},
		},
		{
			name: "semicolon in string literal",
			text: "INSERT INTO t(s) VALUES ('a;b'); SELECT 1",
			want: []string{"INSERT INTO t(s) VALUES ('a;b')", "SELECT 1"},
		},
		{
			name: "semicolon in doubled-quote escape",
			text: "INSERT INTO t(s) VALUES ('it''s; fine'); SELECT 1",
			want: []string{"INSERT INTO t(s) VALUES ('it''s; fine')", "SELECT 1"},
		},
		{
			name: "semicolon in comment",
			text: "SELECT 1 -- not a split; here\n; SELECT 2",
			want: []string{"SELECT 1 -- not a split; here", "SELECT 2"},
		},
		{
			name: "empty segments dropped",
			text: ";;  ;SELECT 1;;",
			want: []string{"SELECT 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Split(%q) = %d statements %q, want %d", tt.text, len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("statement %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitKeepsTriggerBodyWhole(t *testing.T) {
	text := `CREATE TABLE t (n INTEGER);
CREATE TRIGGER trg AFTER INSERT ON t
BEGIN
  UPDATE t SET n = n + 1;
  INSERT INTO t(n) VALUES (CASE WHEN new.n > 0 THEN 1 ELSE 0 END);
END;
SELECT count(*) FROM t`

	got := Split(text)
	if len(got) != 3 {
		t.Fatalf("Split returned %d statements, want 3: %q", len(got), got)
	}
	trigger := got[1]
	if !strings.Contains(trigger, "UPDATE t SET n = n + 1;") {
		t.Errorf("trigger body fragmented: %q", trigger)
	}
	if !strings.Contains(trigger, "CASE WHEN") || !strings.HasSuffix(strings.ToUpper(trigger), "END") {
		t.Errorf("trigger body incomplete: %q", trigger)
	}
	if got[2] != "SELECT count(*) FROM t" {
		t.Errorf("statement after trigger = %q", got[2])
	}
}

func TestSplitTempTrigger(t *testing.T) {
	text := "CREATE TEMP TRIGGER trg BEFORE DELETE ON t BEGIN SELECT 1; SELECT 2; END; SELECT 3"
	got := Split(text)
	if len(got) != 2 {
		t.Fatalf("Split returned %d statements, want 2: %q", len(got), got)
	}
}
