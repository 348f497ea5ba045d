package models

// PaymentMetadata travels with a charge from initialize through verify and
// webhook delivery. IDs are hex ObjectIDs; amounts do not belong here.
type PaymentMetadata struct {
	ContestID   string `json:"contest_id"`
	CategoryID  string `json:"category_id"`
	NomineeID   string `json:"nominee_id"`
	VoteCount   int64  `json:"vote_count"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
}

// ChargeData is the gateway's view of one transaction, as returned by the
// verify endpoint and embedded in webhook deliveries. Amount is in minor
// currency units.
type ChargeData struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	PaidAt    string          `json:"paid_at,omitempty"`
	Metadata  PaymentMetadata `json:"metadata"`
}

// VerifyResponse is the gateway envelope for GET /transaction/verify/{ref}.
type VerifyResponse struct {
	Status  bool       `json:"status"`
	Message string     `json:"message"`
	Data    ChargeData `json:"data"`
}

// InitializeResponse is the gateway envelope for POST /transaction/initialize.
type InitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// WebhookEvent is the inbound push payload from the gateway.
type WebhookEvent struct {
	Event string     `json:"event"`
	Data  ChargeData `json:"data"`
}
