package model

// Credentials are the structured fields a client submits for validation.
// Token is passed through untouched into the session token.
type Credentials struct {
	Token    string `json:"_token" form:"_token"`
	GrowID   string `json:"growId" form:"growId" validate:"required,min=2"`
	Password string `json:"password" form:"password" validate:"required,min=7"`
}

// AccountType is reported for every validated account.
const AccountType = "growtopia"
