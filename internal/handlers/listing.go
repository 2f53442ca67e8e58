// internal/handlers/listing.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/services"
	"github.com/heimly/heimly-backend/internal/utils"
)

type ListingHandler struct {
	listingService      *services.ListingService
	verificationService *services.VerificationService
	identityService     *services.IdentityService
	storageService      *services.StorageService
}

func NewListingHandler(
	listingService *services.ListingService,
	verificationService *services.VerificationService,
	identityService *services.IdentityService,
	storageService *services.StorageService,
) *ListingHandler {
	return &ListingHandler{
		listingService:      listingService,
		verificationService: verificationService,
		identityService:     identityService,
		storageService:      storageService,
	}
}

// ownedListing loads a listing and checks the authenticated owner owns it.
// Staff bypass the ownership check.
func (h *ListingHandler) ownedListing(c *gin.Context) (*models.Listing, uuid.UUID, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return nil, uuid.Nil, false
	}

	listingID, ok := pathUUID(c, "id")
	if !ok {
		return nil, uuid.Nil, false
	}

	listing, err := h.listingService.Get(listingID)
	if err != nil {
		respondServiceError(c, "listing", err)
		return nil, uuid.Nil, false
	}

	if role, _ := utils.GetUserRoleFromContext(c); role == string(models.UserRoleStaff) {
		return listing, userID, true
	}

	profile, err := h.identityService.GetProfileByUserID(userID)
	if err != nil || listing.OwnerProfileID != profile.ID {
		utils.ForbiddenResponse(c, "")
		return nil, uuid.Nil, false
	}
	return listing, userID, true
}

// GET /listings (public search over verified listings)
func (h *ListingHandler) Search(c *gin.Context) {
	listings, err := h.listingService.Search(c.Query("city"), c.Query("search"))
	if err != nil {
		respondServiceError(c, "listings", err)
		return
	}

	params := utils.GetPaginationParams(c)
	_, result := utils.PaginateSlice(listings, params)
	utils.PaginatedResponse(c, result)
}

// GET /listings/:id
func (h *ListingHandler) Get(c *gin.Context) {
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	listing, err := h.listingService.Get(listingID)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	// Non-public listings are visible to their owner and to staff only.
	if listing.Visibility != models.VisibilityPublic {
		role, _ := utils.GetUserRoleFromContext(c)
		if role != string(models.UserRoleStaff) {
			userID, authed := currentUserID(c)
			if !authed {
				utils.NotFoundResponse(c, "listing")
				return
			}
			profile, err := h.identityService.GetProfileByUserID(userID)
			if err != nil || listing.OwnerProfileID != profile.ID {
				utils.NotFoundResponse(c, "listing")
				return
			}
		}
	}

	photos, err := h.listingService.ListPhotos(listing.ID)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}
	documents, err := h.listingService.ListDocuments(listing.ID)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}
	listing.Photos = photos
	listing.Documents = documents

	utils.SuccessResponse(c, gin.H{"listing": listing})
}

// POST /listings
func (h *ListingHandler) Create(c *gin.Context) {
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

	var req services.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	listing, err := h.listingService.Create(profile.ID, &req)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.CreatedResponse(c, gin.H{"listing": listing})
}

// PUT /listings/:id
func (h *ListingHandler) Update(c *gin.Context) {
	listing, _, ok := h.ownedListing(c)
	if !ok {
		return
	}

	var req services.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	updated, err := h.listingService.Update(listing.ID, &req)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"listing": updated})
}

// GET /listings/dashboard
func (h *ListingHandler) Dashboard(c *gin.Context) {
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

	dashboard, err := h.listingService.OwnerDashboard(profile.ID)
	if err != nil {
		respondServiceError(c, "listings", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"dashboard": dashboard})
}

// POST /listings/:id/archive
func (h *ListingHandler) Archive(c *gin.Context) {
	listing, userID, ok := h.ownedListing(c)
	if !ok {
		return
	}

	if err := h.listingService.Archive(listing.ID, userID); err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Listing archived"})
}

// POST /listings/:id/photos
func (h *ListingHandler) UploadPhoto(c *gin.Context) {
	listing, userID, ok := h.ownedListing(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "A file upload is required", nil)
		return
	}
	defer file.Close()

	if err := h.storageService.ValidateImage(file); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	result, err := h.storageService.UploadFile(file, header, h.storageService.GetDefaultUploadOptions("listing_photos"))
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	photo, err := h.listingService.AddPhoto(listing.ID, userID, result.Key, c.PostForm("caption"), 0)
	if err != nil {
		respondServiceError(c, "photo", err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"photo":  photo,
		"upload": result,
	})
}

// PUT /listings/:id/photos/:photoId/primary
func (h *ListingHandler) SetPrimaryPhoto(c *gin.Context) {
	listing, _, ok := h.ownedListing(c)
	if !ok {
		return
	}

	photoID, ok := pathUUID(c, "photoId")
	if !ok {
		return
	}

	if err := h.listingService.SetPrimaryPhoto(listing.ID, photoID); err != nil {
		respondServiceError(c, "photo", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Primary photo updated"})
}

// DELETE /listings/:id/photos/:photoId
func (h *ListingHandler) DeletePhoto(c *gin.Context) {
	listing, _, ok := h.ownedListing(c)
	if !ok {
		return
	}

	photoID, ok := pathUUID(c, "photoId")
	if !ok {
		return
	}

	if err := h.listingService.RemovePhoto(listing.ID, photoID); err != nil {
		respondServiceError(c, "photo", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Photo removed"})
}

// POST /listings/:id/documents
func (h *ListingHandler) UploadDocument(c *gin.Context) {
	listing, _, ok := h.ownedListing(c)
	if !ok {
		return
	}

	docType := models.DocumentType(c.PostForm("doc_type"))
	if docType == "" {
		utils.BadRequestResponse(c, "doc_type is required", nil)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "A file upload is required", nil)
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(file, header, h.storageService.GetDefaultUploadOptions("listing_documents"))
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	doc, err := h.listingService.AddDocument(listing.ID, docType, result.Key)
	if err != nil {
		respondServiceError(c, "document", err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"document": doc,
		"upload":   result,
	})
}

// GET /listings/:id/checklist
func (h *ListingHandler) Checklist(c *gin.Context) {
	listing, _, ok := h.ownedListing(c)
	if !ok {
		return
	}

	checklist, err := h.verificationService.GetSubmissionChecklist(listing.ID)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"checklist": checklist})
}

// POST /listings/:id/submit
func (h *ListingHandler) Submit(c *gin.Context) {
	listing, userID, ok := h.ownedListing(c)
	if !ok {
		return
	}

	request, err := h.verificationService.SubmitForReview(listing.ID, userID)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Listing submitted for review",
		"request": request,
	})
}

// GET /listings/:id/requests
func (h *ListingHandler) Requests(c *gin.Context) {
	listing, _, ok := h.ownedListing(c)
	if !ok {
		return
	}

	requests, err := h.verificationService.ListRequests(listing.ID)
	if err != nil {
		respondServiceError(c, "listing", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"requests": requests})
}
