package ranking

import "testing"

func TestStandardPolicyScore(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want int
	}{
		{name: "win", role: RoleWin, want: 3},
		{name: "loss", role: RoleLoss, want: 0},
		{name: "bye", role: RoleBye, want: 1},
		{name: "unknown role scores zero", role: Role(42), want: 0},
		{name: "negative role scores zero", role: Role(-1), want: 0},
	}

	var p StandardPolicy
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Score(tt.role); got != tt.want {
				t.Errorf("Score(%v) = %d, want %d", tt.role, got, tt.want)
			}
		})
	}
}
