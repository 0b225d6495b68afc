// Package ability answers yes/no authorization questions for a session.
//
// An Ability is built once per session from the caller's role and id, holds an
// immutable rule list, and is queried synchronously by handlers before they
// expose or mutate anything. Rules are matched by action and subject type;
// an explicit deny always beats an allow for the same question.
package ability

import "github.com/courtsidehq/courtside/internal/auth/domain"

// Actions understood by the rule table. Manage is a wildcard that matches
// every action.
const (
	ActionManage = "manage"
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Subject is anything an ability question can be asked about. Instances carry
// their type tag explicitly since rule matching works on the tag, not on the
// Go type.
type Subject interface {
	AbilitySubject() string
}

// SubjectType asks about a subject type in general rather than a concrete
// instance, e.g. Can(ActionRead, ability.SubjectType("User")).
type SubjectType string

// AbilitySubject implements Subject.
func (s SubjectType) AbilitySubject() string { return string(s) }

// The subject types known to the rule table.
const (
	SubjectUser       SubjectType = "User"
	SubjectTournament SubjectType = "Tournament"
)

// Condition narrows a rule to matching instances. Conditioned rules never
// match a bare SubjectType query; they need an instance to inspect.
type Condition func(subject Subject) bool

// Rule is one entry in an Ability. A nil Fields slice covers every field; a
// nil Condition matches unconditionally.
type Rule struct {
	Deny      bool
	Action    string
	Subject   string
	Fields    []string
	Condition Condition
}

// Ability is an immutable per-session rule set.
type Ability struct {
	rules []Rule
}

// profileFields are the user fields an account holder (or an admin acting on
// their behalf) may edit. Role and account-state flags are deliberately
// absent.
var profileFields = []string{"firstName", "lastName", "phoneNumber", "alternateNumber", "address"}

// New builds the rule set for a role. callerID scopes the self-service rules
// for regular users; elevated roles ignore it.
func New(role domain.Role, callerID string) *Ability {
	switch role {
	case domain.RoleSuperAdmin:
		return &Ability{rules: []Rule{
			{Action: ActionManage, Subject: string(SubjectUser)},
			{Action: ActionManage, Subject: string(SubjectTournament)},
			// Super admins are not able to demote or remove each other. The
			// deny must look at the target instance's role, so a super admin
			// still passes the bare "can update role" probe.
			{Deny: true, Action: ActionUpdate, Subject: string(SubjectUser), Fields: []string{"role"}, Condition: targetIsSuperAdmin},
			{Deny: true, Action: ActionDelete, Subject: string(SubjectUser), Condition: targetIsSuperAdmin},
		}}

	case domain.RoleAdmin:
		return &Ability{rules: []Rule{
			{Action: ActionRead, Subject: string(SubjectUser)},
			{Action: ActionUpdate, Subject: string(SubjectUser), Fields: profileFields},
			{Action: ActionRead, Subject: string(SubjectTournament)},
		}}

	case domain.RoleModerator, domain.RoleScorer:
		return &Ability{rules: []Rule{
			{Action: ActionRead, Subject: string(SubjectUser)},
			{Action: ActionRead, Subject: string(SubjectTournament)},
		}}

	default:
		return &Ability{rules: []Rule{
			{Action: ActionRead, Subject: string(SubjectUser), Condition: isSelf(callerID)},
			{Action: ActionUpdate, Subject: string(SubjectUser), Fields: profileFields, Condition: isSelf(callerID)},
			{Action: ActionRead, Subject: string(SubjectTournament)},
		}}
	}
}

// Can reports whether action on subject is permitted. When fields are given,
// every one of them must be permitted. Deny rules win over allow rules.
func (a *Ability) Can(action string, subject Subject, fields ...string) bool {
	if len(fields) == 0 {
		return a.allowed(action, subject, "")
	}
	for _, f := range fields {
		if !a.allowed(action, subject, f) {
			return false
		}
	}
	return true
}

// Cannot is the negation of Can.
func (a *Ability) Cannot(action string, subject Subject, fields ...string) bool {
	return !a.Can(action, subject, fields...)
}

func (a *Ability) allowed(action string, subject Subject, field string) bool {
	allowed := false
	for _, r := range a.rules {
		if !r.matches(action, subject, field) {
			continue
		}
		if r.Deny {
			return false
		}
		allowed = true
	}
	return allowed
}

func (r Rule) matches(action string, subject Subject, field string) bool {
	if r.Action != ActionManage && r.Action != action {
		return false
	}
	if r.Subject != subject.AbilitySubject() {
		return false
	}
	if !r.fieldMatches(field) {
		return false
	}
	if r.Condition != nil {
		if _, bare := subject.(SubjectType); bare {
			return false
		}
		return r.Condition(subject)
	}
	return true
}

func (r Rule) fieldMatches(field string) bool {
	if field == "" {
		// A field-less probe asks "can this action touch the subject at all".
		// Field-scoped denies only forbid their own fields, so they stay out
		// of it; field-scoped allows still count.
		return !r.Deny || r.Fields == nil
	}
	if r.Fields == nil {
		return true
	}
	for _, f := range r.Fields {
		if f == field {
			return true
		}
	}
	return false
}

func targetIsSuperAdmin(s Subject) bool {
	u, ok := asUser(s)
	return ok && u.Role == domain.RoleSuperAdmin
}

func isSelf(callerID string) Condition {
	return func(s Subject) bool {
		u, ok := asUser(s)
		return ok && u.ID == callerID
	}
}

func asUser(s Subject) (domain.User, bool) {
	switch u := s.(type) {
	case domain.User:
		return u, true
	case *domain.User:
		return *u, true
	default:
		return domain.User{}, false
	}
}
