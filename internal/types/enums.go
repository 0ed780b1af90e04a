package types

import "github.com/samber/lo"

// Motion Type values
const (
	MotionOpen    = "open"
	MotionCall    = "call"
	MotionOrder   = "order"
	MotionAmend   = "amend"
	MotionResolve = "resolve"
	MotionSecond  = "second"
	MotionClose   = "close"
)

// Motion Status values
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusAdopted  = "adopted"
	StatusDeclined = "declined"
	StatusClosed   = "closed"
)

// Transition actions
const (
	ActionAdopt   = "adopt"
	ActionAllow   = "allow"
	ActionDecline = "decline"
	ActionDeny    = "deny"
	ActionClose   = "close"
	ActionSubmit  = "submit"
	ActionDiscard = "discard"
)

// Capabilities
const (
	CapAddInstance = "mod/plenum:addinstance"
	CapMeet        = "mod/plenum:meet"
	CapGrade       = "mod/plenum:grade"
	CapPreside     = "mod/plenum:preside"
	CapView        = "mod/plenum:view"
	CapShareVideo  = "plenumform/deft:sharevideo"
	CapViewVideo   = "plenumform/deft:viewvideo"
)

// Role archetypes
const (
	RoleManager        = "manager"
	RoleEditingTeacher = "editingteacher"
	RoleTeacher        = "teacher"
	RoleStudent        = "student"
	RoleGuest          = "guest"
)

// Capability override permissions
const (
	PermissionAllow    = "allow"
	PermissionProhibit = "prohibit"
)

// Meeting form plugins
const (
	FormBasic  = "basic"
	FormJitsi  = "jitsi"
	FormJitsi2 = "jitsi2"
	FormDeft   = "deft"
)

// Plugin kinds
const (
	PluginKindForm = "plenumform"
	PluginKindType = "plenumtype"
)

// Group modes
const (
	GroupModeNone     = 0
	GroupModeSeparate = 1
	GroupModeVisible  = 2
)

// Connection status for speakers and peers
const (
	ConnectionActive = 0
	ConnectionEnded  = 1
)

// Speaker roles
const (
	SpeakerRoleSpeaker = 0
	SpeakerRoleChair   = 1
)

var ValidMotionTypes = []string{
	MotionOpen, MotionCall, MotionOrder, MotionAmend,
	MotionResolve, MotionSecond, MotionClose,
}

var ValidMotionStatuses = []string{
	StatusDraft, StatusPending, StatusAdopted, StatusDeclined, StatusClosed,
}

var ValidActions = []string{
	ActionAdopt, ActionAllow, ActionDecline, ActionDeny,
	ActionClose, ActionSubmit, ActionDiscard,
}

var ValidRoles = []string{
	RoleManager, RoleEditingTeacher, RoleTeacher, RoleStudent, RoleGuest,
}

var ValidForms = []string{FormBasic, FormJitsi, FormJitsi2, FormDeft}

var ValidPluginKinds = []string{PluginKindForm, PluginKindType}

// Archetypes lists the roles granted each capability by default.
var Archetypes = map[string][]string{
	CapAddInstance: {RoleManager, RoleEditingTeacher},
	CapMeet:        {RoleEditingTeacher, RoleManager, RoleStudent, RoleTeacher},
	CapGrade:       {RoleEditingTeacher, RoleTeacher},
	CapPreside:     {RoleEditingTeacher, RoleTeacher},
	CapView:        {RoleGuest, RoleEditingTeacher, RoleManager, RoleStudent, RoleTeacher},
	CapShareVideo:  {RoleEditingTeacher, RoleManager, RoleStudent, RoleTeacher},
	CapViewVideo:   {RoleGuest, RoleEditingTeacher, RoleManager, RoleStudent, RoleTeacher},
}

func IsValidMotionType(t string) bool {
	return lo.Contains(ValidMotionTypes, t)
}

func IsValidMotionStatus(s string) bool {
	return lo.Contains(ValidMotionStatuses, s)
}

func IsValidAction(a string) bool {
	return lo.Contains(ValidActions, a)
}

func IsValidRole(r string) bool {
	return lo.Contains(ValidRoles, r)
}

func IsValidPluginKind(k string) bool {
	return lo.Contains(ValidPluginKinds, k)
}

// IsTerminalStatus reports whether a motion in this status can no longer change.
func IsTerminalStatus(s string) bool {
	return s == StatusAdopted || s == StatusDeclined || s == StatusClosed
}
