package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionDonate          AuditAction = "DONATE"
	AuditActionWebhook         AuditAction = "WEBHOOK"
	AuditActionWithdrawRequest AuditAction = "WITHDRAW_REQUEST"
	AuditActionWithdrawApprove AuditAction = "WITHDRAW_APPROVE"
	AuditActionWithdrawReject  AuditAction = "WITHDRAW_REJECT"
	AuditActionLogin           AuditAction = "LOGIN"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	AdminID      *uuid.UUID  `json:"admin_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
