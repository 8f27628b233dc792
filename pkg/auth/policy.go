package auth

import "recipebook/pkg/domain"

// Intent names the capability an operation needs.
type Intent int

const (
	ReadPublic Intent = iota
	RequireAuthenticated
	RequireAdmin
)

func (i Intent) String() string {
	switch i {
	case ReadPublic:
		return "public"
	case RequireAuthenticated:
		return "authenticated"
	case RequireAdmin:
		return "admin-only"
	default:
		return "unknown"
	}
}

// Authorize grants or denies intent for the caller's claim (nil when the
// caller has no session). It returns nil on allow, domain.ErrUnauthorized
// when a session is required but missing, and domain.ErrForbidden when the
// session lacks the role.
//
// This is the only place role rules are evaluated.
func Authorize(intent Intent, claim *domain.Claim) error {
	switch intent {
	case ReadPublic:
		return nil
	case RequireAuthenticated:
		if claim == nil {
			return domain.ErrUnauthorized
		}
		return nil
	case RequireAdmin:
		if claim == nil {
			return domain.ErrUnauthorized
		}
		if !claim.IsAdmin() {
			return domain.ErrForbidden
		}
		return nil
	default:
		return domain.ErrForbidden
	}
}
