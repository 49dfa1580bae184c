package models

import "slices"

// OU (Organizational Unit) is the top-level grouping. It holds references to
// Divisions, not the Divisions themselves.
type OU struct {
	ID          string   `json:"id" firestore:"-"`
	Name        string   `json:"name" firestore:"name"`
	DivisionIDs []string `json:"divisions" firestore:"divisions"`
}

// HasDivision reports whether divisionID is attached to the OU.
func (o *OU) HasDivision(divisionID string) bool {
	return slices.Contains(o.DivisionIDs, divisionID)
}

// Division owns its credential list exclusively and holds non-owning
// references to its member users.
type Division struct {
	ID          string       `json:"id" firestore:"-"`
	Name        string       `json:"name" firestore:"name"`
	Credentials []Credential `json:"repo" firestore:"repo"`
	EmployeeIDs []string     `json:"employees" firestore:"employees"`
}

// HasEmployee reports whether userID is in the division's employee set.
func (d *Division) HasEmployee(userID string) bool {
	return slices.Contains(d.EmployeeIDs, userID)
}

// CredentialIndex returns the position of the credential with the given id, or -1.
func (d *Division) CredentialIndex(credentialID string) int {
	return slices.IndexFunc(d.Credentials, func(c Credential) bool { return c.ID == credentialID })
}

// DivisionSummary is the lightweight id+name projection used by listings.
type DivisionSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OUSummary is an OU with its divisions reduced to summaries.
type OUSummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Divisions []DivisionSummary `json:"divisions"`
}

// DivisionView is a division as returned to API callers: credentials either
// intact or redacted, employees projected.
type DivisionView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Credentials []Credential `json:"repo"`
	Employees   []Employee   `json:"employees"`
}

// DivisionStaff is a division with its full employee projection, used by the
// admin org chart.
type DivisionStaff struct {
	DivisionID   string     `json:"divisionId"`
	DivisionName string     `json:"divisionName"`
	Employees    []Employee `json:"employees"`
}

// OUStaff nests DivisionStaff under its OU.
type OUStaff struct {
	OUID      string          `json:"ouId"`
	OUName    string          `json:"ouName"`
	Divisions []DivisionStaff `json:"divisions"`
}
