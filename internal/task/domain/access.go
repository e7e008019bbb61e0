package domain

// Permission is the access level a sharing entry grants.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite
}

// Decision is the structured result of an access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Authorize decides whether userID may act on the task at the required permission
// level. Pure and side-effect free; every entry point (HTTP and websocket) runs
// through it so the rules cannot drift between transports.
//
// The owner always passes. Otherwise the user's sharing entry decides: absent
// means deny; write requires a write entry; read accepts any entry.
func Authorize(t *Task, userID string, required Permission) Decision {
	if t == nil {
		return deny("task does not exist")
	}
	if t.OwnerID == userID {
		return allow("owner")
	}

	i := t.ShareIndex(userID)
	if i < 0 {
		return deny("task is not shared with user")
	}

	if required == PermissionWrite && t.SharedWith[i].Permission != PermissionWrite {
		return deny("write permission required")
	}
	return allow("shared with " + string(t.SharedWith[i].Permission) + " permission")
}
