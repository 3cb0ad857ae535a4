// Package ability compiles the JSON policy file into per-request permission
// checks. The policy maps each role to a list of rules; a rule either grants
// an (action, subject) pair unconditionally or scopes the grant to records
// owned by the requesting principal.
package ability

import (
	"errors"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// Actions understood by the policy file.
const (
	ActionManage             = "manage"
	ActionCreate             = "create"
	ActionRead               = "read"
	ActionUpdate             = "update"
	ActionDelete             = "delete"
	ActionUpdatePassword     = "updatePassword"
	ActionUpdateEmail        = "updateEmail"
	ActionUploadProfileImage = "uploadProfileImage"
	ActionLogout             = "logout"
	ActionManageRegistration = "manageRegistration"
)

// Subjects understood by the policy file.
const (
	SubjectAll          = "all"
	SubjectAuth         = "Auth"
	SubjectUser         = "User"
	SubjectBook         = "Book"
	SubjectAuthor       = "Author"
	SubjectBookshelf    = "Bookshelf"
	SubjectWishlist     = "Wishlist"
	SubjectRegistration = "Registration"
	SubjectSearch       = "Search"
	SubjectStats        = "Stats"
)

// ErrUnknownRole indicates the principal carries a role absent from the
// policy file: a misconfigured principal rather than a plain denial.
var ErrUnknownRole = errors.New("ability: role not present in policy")

// RuleKind distinguishes the two supported grant shapes.
type RuleKind int

const (
	// RuleAllow grants the (action, subject) pair unconditionally.
	RuleAllow RuleKind = iota
	// RuleAllowOwn grants the pair only on records owned by the principal.
	RuleAllowOwn
)

// Rule is one compiled policy entry.
type Rule struct {
	Kind    RuleKind
	Action  string
	Subject string
}

// Ability is the materialized permission set for one principal for one
// request. It is built fresh per request and never cached.
type Ability struct {
	principal domain.Principal
	rules     []Rule
	manageAll bool
}

// Principal returns the identity the ability was built for.
func (a *Ability) Principal() domain.Principal {
	return a.principal
}

// Can reports whether any rule grants the action on the subject. Owner-scoped
// rules pass this route-level gate; record-level ownership is enforced by
// CanOwn once the target's owner is known.
func (a *Ability) Can(action, subject string) bool {
	if a.manageAll {
		return true
	}
	for _, r := range a.rules {
		if r.Action == action && r.Subject == subject {
			return true
		}
	}
	return false
}

// CanOwn reports whether the principal may perform the action on a record
// owned by ownerID. Unconditional rules always pass; owner-scoped rules pass
// only when the principal is the owner.
func (a *Ability) CanOwn(action, subject, ownerID string) bool {
	if a.manageAll {
		return true
	}
	for _, r := range a.rules {
		if r.Action != action || r.Subject != subject {
			continue
		}
		switch r.Kind {
		case RuleAllow:
			return true
		case RuleAllowOwn:
			if ownerID != "" && ownerID == a.principal.UserID {
				return true
			}
		}
	}
	return false
}
