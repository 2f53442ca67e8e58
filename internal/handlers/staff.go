// internal/handlers/staff.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/services"
	"github.com/heimly/heimly-backend/internal/utils"
)

// StaffHandler exposes the moderation surface: the review queue, identity
// review, listing verdicts, document review, and the audit trail.
type StaffHandler struct {
	identityService     *services.IdentityService
	documentService     *services.DocumentService
	verificationService *services.VerificationService
	auditService        *services.AuditService
}

func NewStaffHandler(
	identityService *services.IdentityService,
	documentService *services.DocumentService,
	verificationService *services.VerificationService,
	auditService *services.AuditService,
) *StaffHandler {
	return &StaffHandler{
		identityService:     identityService,
		documentService:     documentService,
		verificationService: verificationService,
		auditService:        auditService,
	}
}

type reviewRequest struct {
	Notes string `json:"notes,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

type bulkRequest struct {
	IDs     []uuid.UUID `json:"ids" binding:"required"`
	Action  string      `json:"action" binding:"required"`
	Comment string      `json:"comment,omitempty"`
}

// GET /staff/queue?view=all&status=&city=&search=
func (h *StaffHandler) ReviewQueue(c *gin.Context) {
	filter := services.QueueFilter{
		All:    c.Query("view") == "all",
		Status: models.ListingStatus(c.Query("status")),
		City:   c.Query("city"),
		Search: c.Query("search"),
	}

	listings, counts, err := h.verificationService.ReviewQueue(filter)
	if err != nil {
		respondServiceError(c, "queue", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"listings": listings,
		"counts":   counts,
	})
}

// GET /staff/identities
func (h *StaffHandler) PendingIdentities(c *gin.Context) {
	profiles, err := h.identityService.ListPendingProfiles()
	if err != nil {
		respondServiceError(c, "profiles", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"profiles": profiles})
}

// PUT /staff/identities/:id/approve
func (h *StaffHandler) ApproveIdentity(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	profileID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.identityService.ApproveIdentity(profileID, staffID, req.Notes); err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Identity approved"})
}

// PUT /staff/identities/:id/reject
func (h *StaffHandler) RejectIdentity(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	profileID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.identityService.RejectIdentity(profileID, staffID, req.Notes); err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Identity rejected"})
}

// PUT /staff/identities/:id/verify-email
func (h *StaffHandler) VerifyEmailByAdmin(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	profileID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.identityService.VerifyEmailByAdmin(profileID, staffID); err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Email marked verified"})
}

// PUT /staff/identities/:id/verify-phone
func (h *StaffHandler) VerifyPhoneByAdmin(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	profileID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.identityService.VerifyPhoneByAdmin(profileID, staffID); err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Phone marked verified"})
}

// POST /staff/identities/bulk
func (h *StaffHandler) BulkIdentities(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	var affected int
	var err error
	switch req.Action {
	case "approve":
		affected, err = h.identityService.ApproveIdentityBulk(req.IDs, staffID, req.Comment)
	case "reject":
		affected, err = h.identityService.RejectIdentityBulk(req.IDs, staffID, req.Comment)
	default:
		utils.BadRequestResponse(c, "action must be approve or reject", nil)
		return
	}
	if err != nil {
		respondServiceError(c, "profiles", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"affected": affected})
}

// PUT /staff/listings/:id/approve
func (h *StaffHandler) ApproveListing(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.verificationService.ApproveListing(listingID, staffID, req.Notes); err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Listing approved"})
}

// PUT /staff/listings/:id/reject
func (h *StaffHandler) RejectListing(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req rejectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.verificationService.RejectListing(listingID, staffID, req.Reason); err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Listing rejected"})
}

// POST /staff/listings/bulk
func (h *StaffHandler) BulkListings(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	var affected int
	var err error
	switch req.Action {
	case "approve":
		affected, err = h.verificationService.ApproveListingBulk(req.IDs, staffID, req.Comment)
	case "reject":
		affected, err = h.verificationService.RejectListingBulk(req.IDs, staffID, req.Comment)
	default:
		utils.BadRequestResponse(c, "action must be approve or reject", nil)
		return
	}
	if err != nil {
		respondServiceError(c, "listings", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"affected": affected})
}

// PUT /staff/documents/:id/approve
func (h *StaffHandler) ApproveDocument(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment,omitempty"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.documentService.Approve(documentID, staffID, req.Comment); err != nil {
		respondServiceError(c, "document", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Document approved"})
}

// PUT /staff/documents/:id/reject
func (h *StaffHandler) RejectDocument(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment,omitempty"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.documentService.Reject(documentID, staffID, req.Comment); err != nil {
		respondServiceError(c, "document", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Document rejected"})
}

// POST /staff/documents/bulk
func (h *StaffHandler) BulkDocuments(c *gin.Context) {
	staffID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	var affected int
	var err error
	switch req.Action {
	case "approve":
		affected, err = h.documentService.ApproveMany(req.IDs, staffID, req.Comment)
	case "reject":
		affected, err = h.documentService.RejectMany(req.IDs, staffID, req.Comment)
	default:
		utils.BadRequestResponse(c, "action must be approve or reject", nil)
		return
	}
	if err != nil {
		respondServiceError(c, "documents", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"affected": affected})
}

// GET /staff/audit/:subjectType/:subjectId
func (h *StaffHandler) AuditTrail(c *gin.Context) {
	subjectType := c.Param("subjectType")
	subjectID, ok := pathUUID(c, "subjectId")
	if !ok {
		return
	}

	var subject models.AuditSubject
	switch subjectType {
	case models.SubjectTypeListing:
		subject = models.ListingSubject(subjectID)
	case models.SubjectTypeOwnerProfile:
		subject = models.OwnerProfileSubject(subjectID)
	case models.SubjectTypeDocument:
		subject = models.DocumentSubject(subjectID)
	default:
		utils.BadRequestResponse(c, "Unknown subject type", nil)
		return
	}

	entries, err := h.auditService.Trail(subject)
	if err != nil {
		respondServiceError(c, "audit trail", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"entries": entries})
}
