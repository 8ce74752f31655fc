package presence

// RoleResolver maps role names to ids for the duration of one pass. Role ids
// are stable within a pass but administrators may rename or delete roles
// between passes, so a resolver is built fresh each time.
type RoleResolver struct {
	byName map[string]string
	byID   map[string]string
}

// NewRoleResolver indexes roles. When two roles share a name the first wins.
func NewRoleResolver(roles []Role) *RoleResolver {
	r := &RoleResolver{
		byName: make(map[string]string, len(roles)),
		byID:   make(map[string]string, len(roles)),
	}
	for _, role := range roles {
		if _, dup := r.byName[role.Name]; !dup {
			r.byName[role.Name] = role.ID
		}
		r.byID[role.ID] = role.Name
	}
	return r
}

// IDs resolves names to ids. Names with no matching role are returned in
// unknown, in input order.
func (r *RoleResolver) IDs(names []string) (ids, unknown []string) {
	for _, name := range names {
		if roleID, ok := r.byName[name]; ok {
			ids = append(ids, roleID)
		} else {
			unknown = append(unknown, name)
		}
	}
	return ids, unknown
}

// Names maps held role ids back to names, dropping ids it does not know.
// The result is never nil so callers can tell "holds nothing" from "unknown".
func (r *RoleResolver) Names(roleIDs []string) []string {
	names := make([]string, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		if name, ok := r.byID[roleID]; ok {
			names = append(names, name)
		}
	}
	return names
}
