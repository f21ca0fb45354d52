package handler

import (
	"io"

	"donation-ledger/internal/adapter/http/dto"
	"donation-ledger/internal/adapter/http/middleware"
	"donation-ledger/internal/core/ports"
	"donation-ledger/pkg/apperror"
	"donation-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DonationHandler handles donation intake, lookup, and webhook endpoints.
type DonationHandler struct {
	intakeSvc     ports.IntakeService
	settlementSvc ports.SettlementService
}

// NewDonationHandler creates a new DonationHandler.
func NewDonationHandler(intakeSvc ports.IntakeService, settlementSvc ports.SettlementService) *DonationHandler {
	return &DonationHandler{intakeSvc: intakeSvc, settlementSvc: settlementSvc}
}

// Donate handles POST /api/v1/donations.
func (h *DonationHandler) Donate(c *gin.Context) {
	var req dto.DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	in := ports.DonateInput{
		Amount:     req.Amount,
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
		Message:    req.Message,
	}
	if req.RecipientID != nil {
		id, err := uuid.Parse(*req.RecipientID)
		if err != nil {
			response.Error(c, apperror.ErrInvalidRecipient())
			return
		}
		in.RecipientID = &id
	}

	donation, err := h.intakeSvc.Donate(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewDonationResponse(donation))
}

// GetDonation handles GET /api/v1/donations/:tx_ref.
// A pending donation triggers a provider status poll.
func (h *DonationHandler) GetDonation(c *gin.Context) {
	txRef := c.Param("tx_ref")
	if txRef == "" {
		response.Error(c, apperror.Validation("tx_ref is required"))
		return
	}

	donation, err := h.settlementSvc.GetDonation(c.Request.Context(), txRef)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewDonationResponse(donation))
}

// Webhook handles POST /api/v1/donations/webhook.
// Duplicate deliveries are acknowledged with 200 so the provider stops retrying.
func (h *DonationHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	signature := c.GetHeader(middleware.HeaderWebhookSignature)

	event, err := h.settlementSvc.HandleProviderEvent(c.Request.Context(), payload, signature)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookAckResponse{
		Outcome: string(event.Outcome),
		TxRef:   event.TxRef,
	})
}
