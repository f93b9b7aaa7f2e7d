package models

// Profile is the per-user document stored under users/{uid}.
type Profile struct {
	UID  string `json:"uid"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

// ProfileFromDocument reads the role attribute off a users/{uid} document.
func ProfileFromDocument(uid string, doc map[string]any) Profile {
	return Profile{
		UID:  uid,
		Name: stringField(doc, "name"),
		Role: stringField(doc, "role"),
	}
}

// IsAdmin reports whether the profile carries the administrator role.
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Principal is the signed-in identity as seen by the panel.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	IsAdmin     bool   `json:"isAdmin"`
}
