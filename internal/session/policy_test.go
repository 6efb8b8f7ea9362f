package session

import "testing"

func TestPolicyAuthorize(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		op   int
		arg1 string
		arg2 string
		want int
	}{
		{"attach denied", actionAttach, "/tmp/x.db", "", authDeny},
		{"detach denied", actionDetach, "aux", "", authDeny},
		{"denied function", actionFunction, "", "readfile", authDeny},
		{"denied function mixed case", actionFunction, "", "Load_Extension", authDeny},
		{"allowed function", actionFunction, "", "upper", authAllow},
		{"denied pragma", actionPragma, "writable_schema", "", authDeny},
		{"denied pragma mixed case", actionPragma, "Journal_Mode", "", authDeny},
		{"allowed pragma", actionPragma, "table_info", "", authAllow},
		{"plain read", 20 /* SQLITE_READ */, "notes", "body", authAllow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.authorize(tt.op, tt.arg1, tt.arg2); got != tt.want {
				t.Errorf("authorize(%d, %q, %q) = %d, want %d", tt.op, tt.arg1, tt.arg2, got, tt.want)
			}
		})
	}
}

func TestLower(t *testing.T) {
	tests := []struct{ in, want string }{
		{"VACUUM", "vacuum"},
		{"already_lower", "already_lower"},
		{"MiXeD_99", "mixed_99"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := lower(tt.in); got != tt.want {
			t.Errorf("lower(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
