package training

import "github.com/AFFWORLDT/serverhyhpen-sub001/internal/auth"

// Caller is the authenticated principal invoking an operation.
type Caller struct {
	ID   int
	Role string
}

type Permissions uint8

const (
	PermView Permissions = 1 << iota
	PermMarkAttendance
	PermComplete
	PermCancel
	PermRequestChange
)

func (p Permissions) Has(q Permissions) bool {
	return p&q == q
}

const permManage = PermView | PermMarkAttendance | PermComplete | PermCancel

// Authorize returns everything caller may do to s. Admins and the trainer of
// record manage the session; staff may read it; the owning member may read
// it and ask for changes.
func Authorize(c Caller, s *Session) Permissions {
	switch c.Role {
	case auth.RoleAdmin:
		return permManage
	case auth.RoleStaff:
		return PermView
	case auth.RoleTrainer:
		if s.TrainerID == c.ID {
			return permManage
		}
	case auth.RoleMember:
		if s.MemberID == c.ID {
			return PermView | PermRequestChange
		}
	}
	return 0
}

func canSchedule(c Caller) bool {
	switch c.Role {
	case auth.RoleAdmin, auth.RoleStaff, auth.RoleTrainer:
		return true
	}
	return false
}

// scope narrows a listing to what the caller may see. A member or trainer
// asking for another party's sessions is refused rather than silently
// narrowed.
func scope(c Caller, memberID, trainerID *int) (*int, *int, error) {
	switch c.Role {
	case auth.RoleAdmin, auth.RoleStaff:
		return memberID, trainerID, nil
	case auth.RoleTrainer:
		if trainerID != nil && *trainerID != c.ID {
			return nil, nil, ErrForbidden
		}
		id := c.ID
		return memberID, &id, nil
	case auth.RoleMember:
		if memberID != nil && *memberID != c.ID {
			return nil, nil, ErrForbidden
		}
		id := c.ID
		return &id, trainerID, nil
	}
	return nil, nil, ErrForbidden
}
