package model

import (
	"time"
)

// User is the cached profile snapshot of the signed-in dashboard user
type User struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	OrganizationName string `json:"organizationName"`
}

// Session is the browser-scoped proof of authentication plus the cached profile.
// Token and User are always written and removed together.
type Session struct {
	Token     string
	User      User
	CreatedAt time.Time
}

// Valid reports whether the session carries a usable token
func (s Session) Valid() bool {
	return s.Token != ""
}

// OTP delivery channels
const (
	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
)

// OTP purposes
const (
	PurposeLogin = "LOGIN"
)

// OtpChallenge is the in-flight two-step login exchange for one browser.
// It lives only in memory between "request code" and "verify code".
type OtpChallenge struct {
	Email       string
	Channel     string
	RequestedAt time.Time
	// Pending holds the session returned for a first-time user until setup completes
	Pending *Session
}

// APICredentials are the organization's backend subscription credentials
type APICredentials struct {
	SubscriptionKey    string `json:"subscriptionKey"`
	SubscriptionSecret string `json:"subscriptionSecret"`
}

// Profile is the organization/user profile shown on the settings view
type Profile struct {
	ID               string `json:"id,omitempty"`
	Firstname        string `json:"firstname"`
	Lastname         string `json:"lastname"`
	Email            string `json:"email"`
	MobileNumber     string `json:"mobileNumber,omitempty"`
	OrganizationName string `json:"organizationName"`
	Role             string `json:"role,omitempty"`
	PlanType         string `json:"planType,omitempty"`
	SubscriptionKey  string `json:"subscriptionKey,omitempty"`
}

// Registration is the partner/user onboarding payload
type Registration struct {
	Firstname        string   `json:"firstname"`
	Lastname         string   `json:"lastname"`
	Email            string   `json:"email"`
	OrganizationName string   `json:"organizationName"`
	RegisteredBy     string   `json:"registeredBy"`
	MobileNumber     string   `json:"mobileNumber"`
	PlanType         string   `json:"planType"`
	UserType         string   `json:"userType"`
	TransactionFee   *float64 `json:"transactionFee,omitempty"`
	CappedAmount     *float64 `json:"cappedAmount,omitempty"`
}

// Report intervals for summaries and trends
const (
	IntervalDaily   = "DAILY"
	IntervalWeekly  = "WEEKLY"
	IntervalMonthly = "MONTHLY"
)

// DateRange scopes listing, summary and trend queries
type DateRange struct {
	StartDate string
	EndDate   string
	Interval  string
}

// Payment is a payout as returned by the backend. Fields are mirrored for display only.
type Payment struct {
	ID               string  `json:"id,omitempty"`
	Reference        string  `json:"reference,omitempty"`
	RecipientName    string  `json:"recipientName,omitempty"`
	RecipientNumber  string  `json:"recipientNumber"`
	Network          string  `json:"network,omitempty"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency,omitempty"`
	Narration        string  `json:"narration,omitempty"`
	Status           string  `json:"status,omitempty"`
	CreatedAt        string  `json:"createdAt,omitempty"`
	OrganizationName string  `json:"organizationName,omitempty"`
}

// BulkPayment groups payouts submitted in one batch
type BulkPayment struct {
	Description string    `json:"description,omitempty"`
	Payments    []Payment `json:"payments"`
}

// Collection is a mobile-money collection request mirrored from the backend
type Collection struct {
	ID           string  `json:"id,omitempty"`
	Reference    string  `json:"reference,omitempty"`
	CustomerName string  `json:"customerName,omitempty"`
	MobileNumber string  `json:"mobileNumber"`
	Network      string  `json:"network,omitempty"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description,omitempty"`
	Status       string  `json:"status,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
}

// StatusSummary is a count/amount breakdown by transaction status
type StatusSummary struct {
	Total      int64              `json:"total"`
	TotalValue float64            `json:"totalValue"`
	ByStatus   map[string]int64   `json:"byStatus"`
	Amounts    map[string]float64 `json:"amounts,omitempty"`
}

// TrendPoint is one bucket of a trend series
type TrendPoint struct {
	Period string  `json:"period"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// NameEnquiry resolves the registered name behind a mobile-money wallet
type NameEnquiry struct {
	MobileNumber string `json:"mobileNumber"`
	Network      string `json:"network,omitempty"`
	AccountName  string `json:"accountName,omitempty"`
}

// Subscription is a recurring payment subscription
type Subscription struct {
	ID              string  `json:"id,omitempty"`
	CustomerName    string  `json:"customerName,omitempty"`
	MobileNumber    string  `json:"mobileNumber"`
	Network         string  `json:"network,omitempty"`
	Amount          float64 `json:"amount"`
	Frequency       string  `json:"frequency"`
	StartDate       string  `json:"startDate,omitempty"`
	NumberOfPayment int     `json:"numberOfPayment,omitempty"`
	Status          string  `json:"status,omitempty"`
}

// OrgUser is one row of the users-by-organization listing
type OrgUser struct {
	ID               string `json:"id"`
	Firstname        string `json:"firstname"`
	Lastname         string `json:"lastname"`
	Email            string `json:"email"`
	Role             string `json:"role,omitempty"`
	OrganizationName string `json:"organizationName"`
	Status           string `json:"status,omitempty"`
}
