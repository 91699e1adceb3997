package httphandlers

import "time"

type ConfigResponse struct {
	Version       string
	DerivedConfig interface{}
	Config        interface{}
}

type AgreementResponse struct {
	ID            string
	State         string
	SchemaVersion int

	Creator   string
	Provider  string
	Recipient string

	Asset           string
	NativeAsset     bool
	Amount          string
	RemainingAmount string

	CreatedAt time.Time
	Deadline  time.Time

	Funded              bool
	Signed              bool
	AcceptedByProvider  bool
	AcceptedByRecipient bool
	Completed           bool
	Disputed            bool
	PrivateMode         bool
	Frozen              bool
	PendingCancellation bool
	OrderCancelled      bool
	VestingEnabled      bool
	DeliverySubmitted   bool

	Milestones []MilestoneResponse `json:",omitempty"`
	Countdowns []CountdownResponse `json:",omitempty"`

	FetchedAt      time.Time
	DecodeWarnings []string `json:",omitempty"`
}

type MilestoneResponse struct {
	Index           int
	PercentBP       int64
	UnlockAt        time.Time
	HeldByRecipient bool
	Claimed         bool
	Amount          string
}

type CountdownResponse struct {
	Name      string
	Target    time.Time
	Remaining string
}

type VerdictResponse struct {
	Action  string
	Allowed bool
	Reason  string `json:",omitempty"`
}

type FlowResponse struct {
	FlowID      string
	AgreementID string
	Action      string
	State       string
	Error       string `json:",omitempty"`
	Journal     []TransitionResponse
}

type TransitionResponse struct {
	State  string
	At     time.Time
	TxHash string `json:",omitempty"`
	Error  string `json:",omitempty"`
}

type CreateAgreementRequest struct {
	Provider         string   `json:"provider" binding:"required"`
	Recipient        string   `json:"recipient" binding:"required"`
	Token            string   `json:"token"`
	Amount           string   `json:"amount" binding:"required"`
	DeadlineDuration string   `json:"deadlineDuration" binding:"required"`
	PrivateMode      bool     `json:"privateMode"`
	FundUpfront      bool     `json:"fundUpfront"`
	Percents         []string `json:"percents"`
	Offsets          []string `json:"offsets"`
}
