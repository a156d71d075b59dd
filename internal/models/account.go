package models

// Account is one entry of the /account/list response.
type Account struct {
	AccountID   string `json:"accountId,omitempty"`
	AccountName string `json:"accountName,omitempty"`
}

// AccountListEntry wraps an account record in the /account/list response.
type AccountListEntry struct {
	Account Account `json:"account"`
}

// AccountRequest identifies an account for account-scoped endpoints.
type AccountRequest struct {
	AccountID string `json:"accountId"`
}

// AccountBalance is the response from /account/balance.
type AccountBalance struct {
	AccountID    string  `json:"accountId,omitempty"`
	CoreHours    float64 `json:"coreHours,omitempty"`
	MaxCoreHours float64 `json:"maxCoreHours,omitempty"`
}

// Hpc describes one HPC cluster available to an account.
type Hpc struct {
	HpcID          string `json:"hpcId,omitempty"`
	AccountID      string `json:"accountId,omitempty"`
	HpcCloud       string `json:"hpcCloud,omitempty"`
	HpcRegion      string `json:"hpcRegion,omitempty"`
	HpcDescription string `json:"hpcDescription,omitempty"`
	Active         bool   `json:"active,omitempty"`
}

// User is the response from /user/details.
type User struct {
	UserID    string `json:"userId,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	CognitoID string `json:"cognitoId,omitempty"`
}
