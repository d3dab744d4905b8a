// Package types provides common type definitions for the account monitor.
package types

// AccountType is the brokerage registration type of an account
type AccountType string

const (
	AccountTypeCash   AccountType = "Cash"
	AccountTypeMargin AccountType = "Margin"
	AccountTypeTFSA   AccountType = "TFSA"
	AccountTypeRRSP   AccountType = "RRSP"
	AccountTypeSRRSP  AccountType = "SRRSP"
	AccountTypeLRRSP  AccountType = "LRRSP"
	AccountTypeLIRA   AccountType = "LIRA"
	AccountTypeLIF    AccountType = "LIF"
	AccountTypeRIF    AccountType = "RIF"
	AccountTypeSRIF   AccountType = "SRIF"
	AccountTypeLRIF   AccountType = "LRIF"
	AccountTypeRRIF   AccountType = "RRIF"
	AccountTypePRIF   AccountType = "PRIF"
	AccountTypeRESP   AccountType = "RESP"
	AccountTypeFRESP  AccountType = "FRESP"
)

// ClientAccountType describes who holds the account
type ClientAccountType string

const (
	ClientIndividual            ClientAccountType = "Individual"
	ClientJoint                 ClientAccountType = "Joint"
	ClientInformalTrust         ClientAccountType = "Informal Trust"
	ClientCorporation           ClientAccountType = "Corporation"
	ClientInvestmentClub        ClientAccountType = "Investment Club"
	ClientFormalTrust           ClientAccountType = "Formal Trust"
	ClientPartnership           ClientAccountType = "Partnership"
	ClientSoleProprietorship    ClientAccountType = "Sole Proprietorship"
	ClientFamily                ClientAccountType = "Family"
	ClientJointAndInformalTrust ClientAccountType = "Joint and Informal Trust"
	ClientInstitution           ClientAccountType = "Institution"
)

// AccountStatus is the operational status reported by the broker
type AccountStatus string

const (
	StatusActive            AccountStatus = "Active"
	StatusSuspendedClosed   AccountStatus = "Suspended (Closed)"
	StatusSuspendedViewOnly AccountStatus = "Suspended (View Only)"
	StatusLiquidate         AccountStatus = "Liquidate"
	StatusClosed            AccountStatus = "Closed"
)

// Currency is a balance currency
type Currency string

const (
	// CurrencyCAD represents Canadian dollars
	CurrencyCAD Currency = "CAD"
	// CurrencyUSD represents US dollars
	CurrencyUSD Currency = "USD"
)

// Valid reports whether c is a currency the broker reports balances in
func (c Currency) Valid() bool {
	return c == CurrencyCAD || c == CurrencyUSD
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Message
}
