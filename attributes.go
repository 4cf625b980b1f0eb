package treefs

import (
	"maps"
	"strconv"

	"github.com/brettbedarf/treefs/internal/util"
)

// Owner identifies who a node belongs to: [SystemOwner] or a numeric user id.
type Owner int64

// SystemOwner owns system directories. It is never equal to an acting user
// id, so owner access never bypasses a system node's flags.
const SystemOwner Owner = -1

func (o Owner) String() string {
	if o == SystemOwner {
		return "system"
	}
	return strconv.FormatInt(int64(o), 10)
}

// Access is a read/write flag pair. A nil flag means unrestricted.
type Access struct {
	Read  *bool
	Write *bool
}

// Permissions is the permission record of a node.
type Permissions struct {
	Owner Owner
	Access
	// Users holds per-user overrides, consulted before the node flags.
	Users map[Owner]Access
}

// Attributes are optional per-node attributes. A nil *Attributes is valid and
// means no metadata and unrestricted access.
type Attributes struct {
	Metadata    map[string]any // primitive values only
	Permissions *Permissions
}

// ReadOnly returns the read-only preset: owned by system, readable, not
// writable.
func ReadOnly() *Attributes {
	return &Attributes{Permissions: &Permissions{
		Owner:  SystemOwner,
		Access: Access{Read: util.Pointer(true), Write: util.Pointer(false)},
	}}
}

// NoAccess returns the no-access preset: owned by system, neither readable
// nor writable.
func NoAccess() *Attributes {
	return &Attributes{Permissions: &Permissions{
		Owner:  SystemOwner,
		Access: Access{Read: util.Pointer(false), Write: util.Pointer(false)},
	}}
}

// CanRead reports whether user may read a node carrying a.
func (a *Attributes) CanRead(user Owner) bool {
	return a.allowed(user, func(acc Access) *bool { return acc.Read })
}

// CanWrite reports whether user may overwrite or remove a node carrying a.
func (a *Attributes) CanWrite(user Owner) bool {
	return a.allowed(user, func(acc Access) *bool { return acc.Write })
}

func (a *Attributes) allowed(user Owner, flag func(Access) *bool) bool {
	if a == nil || a.Permissions == nil {
		return true
	}
	p := a.Permissions
	if override, ok := p.Users[user]; ok {
		if v := flag(override); v != nil {
			return *v
		}
	}
	if p.Owner != SystemOwner && p.Owner == user {
		return true
	}
	if v := flag(p.Access); v != nil {
		return *v
	}
	return true
}

// Clone returns a deep copy of a. Metadata values are primitives, so a
// shallow map copy is sufficient for them.
func (a *Attributes) Clone() *Attributes {
	if a == nil {
		return nil
	}
	out := &Attributes{Metadata: maps.Clone(a.Metadata)}
	if p := a.Permissions; p != nil {
		out.Permissions = &Permissions{
			Owner:  p.Owner,
			Access: p.Access.clone(),
		}
		if p.Users != nil {
			out.Permissions.Users = make(map[Owner]Access, len(p.Users))
			for id, acc := range p.Users {
				out.Permissions.Users[id] = acc.clone()
			}
		}
	}
	return out
}

func (acc Access) clone() Access {
	out := Access{}
	if acc.Read != nil {
		out.Read = util.Pointer(*acc.Read)
	}
	if acc.Write != nil {
		out.Write = util.Pointer(*acc.Write)
	}
	return out
}
