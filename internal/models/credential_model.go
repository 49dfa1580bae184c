package models

// Credential is a named set of access fields scoped to a Division. Fields are
// stored as plain attributes.
type Credential struct {
	ID          string `json:"id" firestore:"id"`
	Name        string `json:"name" firestore:"name"`
	URL         string `json:"url" firestore:"url"`
	UserName    string `json:"userName" firestore:"userName"`
	Password    string `json:"password" firestore:"password"`
	Description string `json:"description" firestore:"description"`
}

// CredentialPatch carries a partial update. A nil or empty field keeps the
// stored value.
type CredentialPatch struct {
	Name        *string `json:"name,omitempty"`
	URL         *string `json:"url,omitempty"`
	UserName    *string `json:"userName,omitempty"`
	Password    *string `json:"password,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Fields returns the supplied fields keyed by their stored attribute name.
func (p CredentialPatch) Fields() map[string]string {
	fields := make(map[string]string, 5)
	set := func(key string, v *string) {
		if v != nil && *v != "" {
			fields[key] = *v
		}
	}
	set("name", p.Name)
	set("url", p.URL)
	set("userName", p.UserName)
	set("password", p.Password)
	set("description", p.Description)
	return fields
}

// Empty reports whether the patch would change nothing.
func (p CredentialPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Apply writes the supplied fields onto c. The id is never touched.
func (p CredentialPatch) Apply(c *Credential) {
	for key, v := range p.Fields() {
		switch key {
		case "name":
			c.Name = v
		case "url":
			c.URL = v
		case "userName":
			c.UserName = v
		case "password":
			c.Password = v
		case "description":
			c.Description = v
		}
	}
}
