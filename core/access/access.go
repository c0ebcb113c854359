// Package access holds the authorization rules of the platform.
// Every operation asks Check whether an actor may perform an action on a target.
package access

import (
	"strings"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var (
	Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

	roleAliases = map[string]Role{
		"admin":      RoleAdmin,
		"teacher":    RoleTeacher,
		"docente":    RoleTeacher,
		"student":    RoleStudent,
		"estudiante": RoleStudent,
	}

	ErrForbidden = core.NewForbiddenError("permission denied")
)

// ParseRole parses a role name, accepting the spanish aliases.
func ParseRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// Target describes the resource an action is performed on.
type Target struct {
	OwnerID   string   // owning teacher of a class
	CreatorID string   // user who generated a report
	UserID    string   // user the resource is about (account, progress)
	MemberIDs []string // students enrolled in a class
}

func (t Target) hasMember(id string) bool {
	for _, mid := range t.MemberIDs {
		if mid == id {
			return true
		}
	}
	return false
}

type Action string

const (
	ManageLevels     Action = "levels:manage"
	EditCurriculum   Action = "curriculum:edit"
	DeleteCurriculum Action = "curriculum:delete"

	CreateClass Action = "class:create"
	ListClasses Action = "class:list"
	ViewClass   Action = "class:view"
	ManageClass Action = "class:manage"

	RecordProgress Action = "progress:record"
	ViewProgress   Action = "progress:view"

	GenerateReport Action = "report:generate"
	ListReports    Action = "report:list"
	ViewReport     Action = "report:view"

	ListUsers  Action = "user:list"
	CreateUser Action = "user:create"
	ViewUser   Action = "user:view"
	UpdateUser Action = "user:update"
	DeleteUser Action = "user:delete"
)

type rule func(actor Actor, target Target) bool

func adminOnly(a Actor, _ Target) bool    { return a.IsAdmin() }
func staff(a Actor, _ Target) bool        { return a.IsAdmin() || a.IsTeacher() }
func ownsClass(a Actor, t Target) bool    { return a.IsAdmin() || (a.IsTeacher() && t.OwnerID == a.ID) }
func isSelf(a Actor, t Target) bool       { return t.UserID != "" && t.UserID == a.ID }
func staffOrSelf(a Actor, t Target) bool  { return staff(a, t) || isSelf(a, t) }
func adminOrSelf(a Actor, t Target) bool  { return a.IsAdmin() || isSelf(a, t) }
func adminNotSelf(a Actor, t Target) bool { return a.IsAdmin() && !isSelf(a, t) }

var rules = map[Action]rule{
	ManageLevels:     adminOnly,
	EditCurriculum:   staff,
	DeleteCurriculum: adminOnly,

	CreateClass: staff,
	ListClasses: staff,
	ViewClass: func(a Actor, t Target) bool {
		return ownsClass(a, t) || (a.IsStudent() && t.hasMember(a.ID))
	},
	ManageClass: ownsClass,

	RecordProgress: func(a Actor, t Target) bool { return a.IsStudent() && isSelf(a, t) },
	ViewProgress:   staffOrSelf,

	// a report without class may be generated by any teacher
	GenerateReport: func(a Actor, t Target) bool {
		return a.IsAdmin() || (a.IsTeacher() && (t.OwnerID == "" || t.OwnerID == a.ID))
	},
	ListReports: staff,
	ViewReport: func(a Actor, t Target) bool {
		return a.IsAdmin() || (a.IsTeacher() && ((t.OwnerID != "" && t.OwnerID == a.ID) || t.CreatorID == a.ID))
	},

	ListUsers:  adminOnly,
	CreateUser: adminOnly,
	ViewUser:   staffOrSelf,
	UpdateUser: adminOrSelf,
	DeleteUser: adminNotSelf,
}

// Can reports whether actor may perform action on target. Unknown actions are denied.
func Can(actor Actor, action Action, target Target) bool {
	if actor.ID == "" || !actor.Role.Valid() {
		return false
	}
	r, ok := rules[action]
	return ok && r(actor, target)
}

// Check returns ErrForbidden when actor may not perform action on target.
func Check(actor Actor, action Action, target Target) error {
	if !Can(actor, action, target) {
		return ErrForbidden
	}
	return nil
}
