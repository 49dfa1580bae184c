package models

// RegisterRequest represents the request body for creating an account.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"firstname" binding:"required"`
	LastName  string `json:"lastname" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// LoginRequest represents the request body for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateCredentialRequest represents the request body for adding a credential to a division.
type CreateCredentialRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	UserName    string `json:"userName"`
	Password    string `json:"password"`
	Description string `json:"description"`
}

// UpdateCredentialRequest is the partial update body. Pointers distinguish
// fields not provided from fields provided.
type UpdateCredentialRequest = CredentialPatch

// ChangeRoleRequest represents the request body for overwriting a user's role.
// The role is validated by the membership service after the admin check.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}
