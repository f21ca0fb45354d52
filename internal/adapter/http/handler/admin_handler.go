package handler

import (
"net/http"
"strconv"

"donation-ledger/internal/adapter/http/dto"
"donation-ledger/internal/core/domain"
"donation-ledger/internal/core/ports"
"donation-ledger/pkg/apperror"
"donation-ledger/pkg/response"

"github.com/gin-gonic/gin"
"github.com/google/uuid"
)

// AdminHandler handles admin login, withdrawal review, and reporting endpoints.
type AdminHandler struct {
authSvc       ports.AuthService
withdrawalSvc ports.WithdrawalService
reportingSvc  ports.ReportingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authSvc ports.AuthService, withdrawalSvc ports.WithdrawalService, reportingSvc ports.ReportingService) *AdminHandler {
return &AdminHandler{
authSvc:       authSvc,
withdrawalSvc: withdrawalSvc,
reportingSvc:  reportingSvc,
}
}

// Login handles POST /api/v1/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
var req dto.LoginRequest
if err := c.ShouldBindJSON(&req); err != nil {
response.Error(c, apperror.Validation(err.Error()))
return
}
dto.SanitizeStruct(&req)

token, expiry, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
if err != nil {
response.Error(c, err)
return
}

response.OK(c, dto.LoginResponse{
Token:     token,
ExpiresAt: expiry.Format("2006-01-02T15:04:05Z07:00"),
})
}

// ListWithdrawals handles GET /api/v1/admin/withdrawals.
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
if limit < 1 || limit > 100 {
limit = 20
}
if offset < 0 {
offset = 0
}

params := ports.WithdrawalListParams{Limit: limit, Offset: offset}
if s := c.Query("status"); s != "" {
status := domain.WithdrawalStatus(s)
params.Status = &status
}

requests, total, err := h.withdrawalSvc.List(c.Request.Context(), params)
if err != nil {
response.Error(c, err)
return
}

items := make([]dto.WithdrawalResponse, 0, len(requests))
for _, r := range requests {
items = append(items, dto.NewWithdrawalResponse(r))
}

response.OK(c, dto.WithdrawalListResponse{Items: items, Total: total})
}

// ApproveWithdrawal handles POST /api/v1/admin/withdrawals/:id/approve.
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
id, err := uuid.Parse(c.Param("id"))
if err != nil {
response.Error(c, apperror.Validation("invalid withdrawal id"))
return
}

request, err := h.withdrawalSvc.Approve(c.Request.Context(), id)
if err != nil {
response.Error(c, err)
return
}

response.OK(c, dto.NewWithdrawalResponse(request))
}

// RejectWithdrawal handles POST /api/v1/admin/withdrawals/:id/reject.
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
id, err := uuid.Parse(c.Param("id"))
if err != nil {
response.Error(c, apperror.Validation("invalid withdrawal id"))
return
}

request, err := h.withdrawalSvc.Reject(c.Request.Context(), id)
if err != nil {
response.Error(c, err)
return
}

response.OK(c, dto.NewWithdrawalResponse(request))
}

// GetStats handles GET /api/v1/admin/stats.
func (h *AdminHandler) GetStats(c *gin.Context) {
period := c.DefaultQuery("period", "all")
stats, err := h.reportingSvc.GetStats(c.Request.Context(), ports.StatsPeriod(period))
if err != nil {
response.Error(c, err)
return
}

response.OK(c, dto.StatsResponse{
Period:             period,
Total:              stats.Total,
Pending:            stats.Pending,
Successful:         stats.Successful,
Failed:             stats.Failed,
GrossSettled:       stats.GrossSettled,
CommissionRetained: stats.CommissionRetained,
NetCredited:        stats.NetCredited,
})
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
return func(c *gin.Context) {
type depStatus struct {
Status string `json:"status"`
Error  string `json:"error,omitempty"`
}

deps := make(map[string]depStatus)
allHealthy := true

for _, checker := range checkers {
if err := checker.Ping(c.Request.Context()); err != nil {
deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
allHealthy = false
} else {
deps[checker.Name()] = depStatus{Status: "healthy"}
}
}

status := "healthy"
httpCode := http.StatusOK
if !allHealthy {
status = "degraded"
httpCode = http.StatusServiceUnavailable
}

c.JSON(httpCode, gin.H{
"status":       status,
"dependencies": deps,
})
}
}
