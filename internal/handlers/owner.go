// internal/handlers/owner.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/heimly/heimly-backend/internal/services"
	"github.com/heimly/heimly-backend/internal/utils"
)

// OwnerHandler exposes the KYC surface an owner interacts with: identity
// details, the ID document upload, and contact verification.
type OwnerHandler struct {
	identityService *services.IdentityService
	storageService  *services.StorageService
}

func NewOwnerHandler(identityService *services.IdentityService, storageService *services.StorageService) *OwnerHandler {
	return &OwnerHandler{
		identityService: identityService,
		storageService:  storageService,
	}
}

// GET /owner/profile
func (h *OwnerHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.identityService.GetProfileByUserID(userID)
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"profile": profile})
}

// PUT /owner/profile
func (h *OwnerHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.identityService.GetProfileByUserID(userID)
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	var req services.IdentitySubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	updated, err := h.identityService.RecordIdentitySubmission(profile.ID, &req)
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"profile": updated})
}

// POST /owner/profile/id-document
func (h *OwnerHandler) UploadIDDocument(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.identityService.GetProfileByUserID(userID)
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "A file upload is required", nil)
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(file, header, h.storageService.GetDefaultUploadOptions("owner_ids"))
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	updated, err := h.identityService.RecordIdentitySubmission(profile.ID, &services.IdentitySubmission{
		IDDocumentKey: result.Key,
	})
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"profile": updated,
		"upload":  result,
	})
}

// POST /owner/verify-email
func (h *OwnerHandler) RequestEmailVerification(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.identityService.GetProfileByUserID(userID)
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	if err := h.identityService.RequestEmailVerification(c.Request.Context(), profile.ID); err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Verification email sent",
	})
}

// POST /owner/verify-phone
func (h *OwnerHandler) RequestPhoneOTP(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.identityService.GetProfileByUserID(userID)
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	if err := h.identityService.RequestPhoneOTP(c.Request.Context(), profile.ID); err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Verification code sent",
	})
}

// POST /owner/verify-phone/confirm
func (h *OwnerHandler) VerifyPhoneOTP(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.identityService.GetProfileByUserID(userID)
	if err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "A verification code is required", nil)
		return
	}

	if err := h.identityService.VerifyPhoneOTP(c.Request.Context(), profile.ID, req.Code); err != nil {
		respondServiceError(c, "profile", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Phone verified",
	})
}
