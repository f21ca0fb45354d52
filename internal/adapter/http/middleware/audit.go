package middleware

import (
"encoding/json"
"strings"
"time"

"donation-ledger/internal/core/domain"
"donation-ledger/internal/core/ports"

"github.com/gin-gonic/gin"
"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
return func(c *gin.Context) {
c.Next()

// Only audit successful write operations (status 2xx)
if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
return
}
if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
return
}

action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
if action == "" {
return
}

var adminID *uuid.UUID
if aid, exists := c.Get(CtxAdminID); exists {
if id, ok := aid.(uuid.UUID); ok {
adminID = &id
}
}

details, _ := json.Marshal(map[string]interface{}{
"method": c.Request.Method,
"path":   c.Request.URL.Path,
"status": c.Writer.Status(),
})

auditSvc.Log(c.Request.Context(), &domain.AuditLog{
ID:           uuid.New(),
AdminID:      adminID,
Action:       action,
ResourceType: resourceType,
IPAddress:    c.ClientIP(),
Details:      string(details),
CreatedAt:    time.Now(),
})
}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
switch {
case path == "/api/v1/donations" && method == "POST":
return domain.AuditActionDonate, "donation"
case path == "/api/v1/donations/webhook" && method == "POST":
return domain.AuditActionWebhook, "donation"
case strings.HasPrefix(path, "/api/v1/wallets/") && strings.HasSuffix(path, "/withdrawals") && method == "POST":
return domain.AuditActionWithdrawRequest, "withdrawal"
case strings.HasPrefix(path, "/api/v1/admin/withdrawals/") && strings.HasSuffix(path, "/approve") && method == "POST":
return domain.AuditActionWithdrawApprove, "withdrawal"
case strings.HasPrefix(path, "/api/v1/admin/withdrawals/") && strings.HasSuffix(path, "/reject") && method == "POST":
return domain.AuditActionWithdrawReject, "withdrawal"
case path == "/api/v1/admin/login" && method == "POST":
return domain.AuditActionLogin, "session"
}
return "", ""
}
