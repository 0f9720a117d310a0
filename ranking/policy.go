package ranking

// Role — роль участника в завершённом матче.
type Role int

const (
	RoleWin Role = iota
	RoleLoss
	RoleBye
)

// Policy maps a participant's role in a finished match to awarded points.
// Implementations must be pure: no side effects, total over all roles.
type Policy interface {
	Score(role Role) int
}

// StandardPolicy — каноничная схема начисления очков:
// победа 3, поражение 0, bye 1.
type StandardPolicy struct{}

func (StandardPolicy) Score(role Role) int {
	switch role {
	case RoleWin:
		return 3
	case RoleLoss:
		return 0
	case RoleBye:
		return 1
	default:
		// Неизвестная роль не должна ронять пересчёт.
		return 0
	}
}
