package handler

import (
	"donation-ledger/internal/adapter/http/dto"
	"donation-ledger/internal/core/ports"
	"donation-ledger/pkg/apperror"
	"donation-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles recipient wallet endpoints.
type WalletHandler struct {
	settlementSvc ports.SettlementService
	withdrawalSvc ports.WithdrawalService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(settlementSvc ports.SettlementService, withdrawalSvc ports.WithdrawalService) *WalletHandler {
	return &WalletHandler{settlementSvc: settlementSvc, withdrawalSvc: withdrawalSvc}
}

// GetWallet handles GET /api/v1/wallets/:recipient_id.
// A recipient without a wallet gets an empty one.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	recipientID, err := uuid.Parse(c.Param("recipient_id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidRecipient())
		return
	}

	wallet, err := h.settlementSvc.GetOrCreateWallet(c.Request.Context(), recipientID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// RequestWithdrawal handles POST /api/v1/wallets/:recipient_id/withdrawals.
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	recipientID, err := uuid.Parse(c.Param("recipient_id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidRecipient())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	request, err := h.withdrawalSvc.Request(c.Request.Context(), recipientID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewWithdrawalResponse(request))
}
