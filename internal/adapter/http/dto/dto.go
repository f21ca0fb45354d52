package dto

import (
"donation-ledger/internal/core/domain"
)

// DonateRequest is the request body for starting a donation.
type DonateRequest struct {
Amount      int64   `json:"amount" binding:"required,gt=0"`
DonorName   string  `json:"donor_name" binding:"omitempty,max=100"`
DonorEmail  string  `json:"donor_email" binding:"omitempty,email,max=254"`
Message     string  `json:"message" binding:"omitempty,max=500"`
RecipientID *string `json:"recipient_id" binding:"omitempty,uuid"`
}

// DonationResponse is the response body for donation queries.
type DonationResponse struct {
TxRef       string  `json:"tx_ref"`
DonorName   string  `json:"donor_name"`
Amount      int64   `json:"amount"`
Message     *string `json:"message,omitempty"`
Status      string  `json:"status"`
CheckoutURL *string `json:"checkout_url,omitempty"`
CreatedAt   string  `json:"created_at"`
SettledAt   *string `json:"settled_at,omitempty"`
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
RecipientID   string `json:"recipient_id"`
Balance       int64  `json:"balance"`
TotalReceived int64  `json:"total_received"`
}

// WithdrawRequest is the request body for requesting a withdrawal.
type WithdrawRequest struct {
Amount int64 `json:"amount" binding:"required,gt=0"`
}

// WithdrawalResponse is the response body for withdrawal requests.
type WithdrawalResponse struct {
ID          string  `json:"id"`
RecipientID string  `json:"recipient_id"`
Amount      int64   `json:"amount"`
Status      string  `json:"status"`
CreatedAt   string  `json:"created_at"`
ProcessedAt *string `json:"processed_at,omitempty"`
}

// WithdrawalListResponse wraps a paginated withdrawal list.
type WithdrawalListResponse struct {
Items []WithdrawalResponse `json:"items"`
Total int64                `json:"total"`
}

// LoginRequest is the request body for admin login.
type LoginRequest struct {
Username string `json:"username" binding:"required,safe_id,max=50"`
Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
Token     string `json:"token"`
ExpiresAt string `json:"expires_at"`
}

// StatsResponse is the response body for donation statistics.
type StatsResponse struct {
Period             string `json:"period"`
Total              int64  `json:"total"`
Pending            int64  `json:"pending"`
Successful         int64  `json:"successful"`
Failed             int64  `json:"failed"`
GrossSettled       int64  `json:"gross_settled"`
CommissionRetained int64  `json:"commission_retained"`
NetCredited        int64  `json:"net_credited"`
}

// WebhookAckResponse is returned for accepted webhook deliveries.
type WebhookAckResponse struct {
Outcome string `json:"outcome"`
TxRef   string `json:"tx_ref,omitempty"`
}

// NewDonationResponse maps a domain donation to its response body.
func NewDonationResponse(d *domain.Donation) DonationResponse {
resp := DonationResponse{
TxRef:       d.TxRef,
DonorName:   d.DonorName,
Amount:      d.Amount,
Message:     d.Message,
Status:      string(d.Status),
CheckoutURL: d.CheckoutURL,
CreatedAt:   d.CreatedAt.Format(timeLayout),
}
if d.SettledAt != nil {
s := d.SettledAt.Format(timeLayout)
resp.SettledAt = &s
}
return resp
}

// NewWalletResponse maps a domain wallet to its response body.
func NewWalletResponse(w *domain.Wallet) WalletResponse {
return WalletResponse{
RecipientID:   w.RecipientID.String(),
Balance:       w.Balance,
TotalReceived: w.TotalReceived,
}
}

// NewWithdrawalResponse maps a domain withdrawal request to its response body.
func NewWithdrawalResponse(w *domain.WithdrawalRequest) WithdrawalResponse {
resp := WithdrawalResponse{
ID:          w.ID.String(),
RecipientID: w.RecipientID.String(),
Amount:      w.Amount,
Status:      string(w.Status),
CreatedAt:   w.CreatedAt.Format(timeLayout),
}
if w.ProcessedAt != nil {
p := w.ProcessedAt.Format(timeLayout)
resp.ProcessedAt = &p
}
return resp
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
