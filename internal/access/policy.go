// Package access decides what a caller may do with user records.
//
// Anonymous callers may only create accounts; everything else needs
// credentials. Authenticated callers act on their own record, superusers on
// any record. Denials for anonymous callers are authentication errors so
// clients know to log in; denials for authenticated callers are permission
// errors.
package access

import (
	"github.com/google/uuid"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/user"
)

type Capability int

const (
	ReadList Capability = iota
	ReadDetail
	Create
	Update
	Delete
)

func (c Capability) String() string {
	switch c {
	case ReadList:
		return "read_list"
	case ReadDetail:
		return "read_detail"
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Caller is who is making a request.
type Caller struct {
	ID            uuid.UUID
	Authenticated bool
	IsSuperuser   bool
}

func Anonymous() Caller {
	return Caller{}
}

// For returns the caller acting as u.
func For(u *user.User) Caller {
	if u == nil {
		return Anonymous()
	}
	return Caller{ID: u.ID, Authenticated: true, IsSuperuser: u.IsSuperuser}
}

// Authorize returns nil when c may use capability on target. target is
// ignored for ReadList and Create.
func Authorize(c Caller, capability Capability, target uuid.UUID) error {
	if capability == Create {
		return nil
	}

	if !c.Authenticated {
		return apperr.Authentication("not_authenticated", "")
	}

	if c.IsSuperuser || capability == ReadList {
		return nil
	}

	if target == c.ID {
		return nil
	}

	return apperr.PermissionDenied()
}

// SanitizeUpdate drops role changes from patch unless c is a superuser.
func SanitizeUpdate(c Caller, patch user.Patch) user.Patch {
	if c.IsSuperuser {
		return patch
	}
	patch.IsDeveloper = nil
	patch.IsSuperuser = nil
	return patch
}

// ListScope narrows a listing to the records c may see.
func ListScope(c Caller) user.ListFilter {
	if c.IsSuperuser {
		return user.ListFilter{}
	}
	id := c.ID
	return user.ListFilter{ID: &id}
}
