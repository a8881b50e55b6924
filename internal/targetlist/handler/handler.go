package handler

import (
	"net/http"

	"voiceagent-server/internal/apierrors"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"
	"voiceagent-server/internal/targetlist/processor"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	processor *processor.TargetListProcessor
	logger    *observability.Logger
}

func New(processor *processor.TargetListProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// ContactRequest is one hand-entered contact
type ContactRequest struct {
	ID             string   `json:"id" binding:"required,max=128"`
	Name           string   `json:"name" binding:"required,max=255"`
	Email          string   `json:"email" binding:"required_without=Phone,omitempty,email"`
	Phone          string   `json:"phone" binding:"required_without=Email,omitempty,max=32"`
	Tags           []string `json:"tags"`
	VehicleAge     *int     `json:"vehicle_age" binding:"omitempty,gte=0"`
	Mileage        *int     `json:"mileage" binding:"omitempty,gte=0"`
	WarrantyStatus string   `json:"warranty_status" binding:"omitempty,oneof=Active Expiring Expired"`
	LoyaltyTier    string   `json:"loyalty_tier" binding:"omitempty,oneof=Platinum Gold Silver Bronze"`
}

// AddContactsRequest represents the HTTP request for adding contacts by hand
type AddContactsRequest struct {
	Contacts []ContactRequest `json:"contacts" binding:"required,min=1,dive"`
}

// ToggleRequest flips one contact's checkbox
type ToggleRequest struct {
	ContactID string `json:"contact_id" binding:"required"`
}

// SaveListRequest represents the HTTP request for saving a target list.
// Without contact_ids the current selection is saved.
type SaveListRequest struct {
	Name       string                   `json:"name"`
	Filters    targeting.FilterCriteria `json:"filters"`
	ContactIDs []string                 `json:"contact_ids"`
}

// RenameListRequest represents the HTTP request for renaming a saved list
type RenameListRequest struct {
	Name string `json:"name"`
}

// CampaignTargetsRequest picks the contacts for a new campaign: a saved list, explicit
// ids, or the current selection when both are empty.
type CampaignTargetsRequest struct {
	ListID     string   `json:"list_id"`
	ContactIDs []string `json:"contact_ids"`
}

// HandleListContacts returns every contact
func (h *Handler) HandleListContacts(c *gin.Context) {
	contacts := h.processor.Contacts()
	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "count": len(contacts)})
}

// HandleAddContacts adds contacts; one colliding id rejects the whole batch
func (h *Handler) HandleAddContacts(c *gin.Context) {
	ctx := c.Request.Context()

	var req AddContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	contacts := make([]targeting.Contact, len(req.Contacts))
	for i, r := range req.Contacts {
		contacts[i] = targeting.Contact{
			ID:             r.ID,
			Name:           r.Name,
			Email:          r.Email,
			Phone:          r.Phone,
			Tags:           r.Tags,
			VehicleAge:     r.VehicleAge,
			Mileage:        r.Mileage,
			WarrantyStatus: targeting.WarrantyStatus(r.WarrantyStatus),
			LoyaltyTier:    targeting.LoyaltyTier(r.LoyaltyTier),
		}
	}

	if err := h.processor.AddContacts(ctx, contacts); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"contacts": contacts, "count": len(contacts)})
}

// HandleFilterContacts evaluates the posted criteria
func (h *Handler) HandleFilterContacts(c *gin.Context) {
	ctx := c.Request.Context()

	var criteria targeting.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	contacts, err := h.processor.FilterContacts(ctx, criteria)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "count": len(contacts)})
}

// HandleReloadContacts re-reads contacts from the database
func (h *Handler) HandleReloadContacts(c *gin.Context) {
	count, err := h.processor.Refresh(c.Request.Context())
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) HandleGetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, h.processor.Selection())
}

func (h *Handler) HandleToggleSelection(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	selected := h.processor.ToggleContact(req.ContactID)
	c.JSON(http.StatusOK, gin.H{"contact_id": req.ContactID, "selected": selected, "selection": h.processor.Selection()})
}

// HandleSelectAll replaces the selection with everything matching the posted criteria
func (h *Handler) HandleSelectAll(c *gin.Context) {
	ctx := c.Request.Context()

	var criteria targeting.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	state, err := h.processor.SelectAllVisible(ctx, criteria)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) HandleClearSelection(c *gin.Context) {
	h.processor.ClearSelection()
	c.JSON(http.StatusOK, h.processor.Selection())
}

func (h *Handler) HandleListSavedLists(c *gin.Context) {
	lists := h.processor.ListSavedLists()
	c.JSON(http.StatusOK, gin.H{"lists": lists, "count": len(lists)})
}

// HandleSaveList snapshots filters and selection under a unique name
func (h *Handler) HandleSaveList(c *gin.Context) {
	ctx := c.Request.Context()

	var req SaveListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	list, err := h.processor.SaveList(ctx, req.Name, req.Filters, req.ContactIDs)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *Handler) HandleGetSavedList(c *gin.Context) {
	list, err := h.processor.GetSavedList(c.Param("list_id"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) HandleRenameSavedList(c *gin.Context) {
	ctx := c.Request.Context()

	var req RenameListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	list, err := h.processor.RenameSavedList(ctx, c.Param("list_id"), req.Name)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) HandleDeleteSavedList(c *gin.Context) {
	if err := h.processor.DeleteSavedList(c.Request.Context(), c.Param("list_id")); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleResumeSavedList restores a saved list's selection and returns its filters
func (h *Handler) HandleResumeSavedList(c *gin.Context) {
	list, err := h.processor.ResumeSavedList(c.Param("list_id"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "filters": list.Filters, "selection": h.processor.Selection()})
}

func (h *Handler) HandleListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": h.processor.Presets()})
}

// HandleApplyPreset returns the contacts matching a preset
func (h *Handler) HandleApplyPreset(c *gin.Context) {
	preset, contacts, err := h.processor.ApplyPreset(c.Request.Context(), c.Param("key"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preset": preset, "contacts": contacts, "count": len(contacts)})
}

// HandleCampaignTargets resolves the live contacts for campaign creation
func (h *Handler) HandleCampaignTargets(c *gin.Context) {
	ctx := c.Request.Context()

	var req CampaignTargetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	if req.ListID != "" {
		ctx = observability.WithFields(ctx, observability.Field{Key: "list_id", Value: req.ListID})
	}

	targets, err := h.processor.CampaignTargets(ctx, req.ListID, req.ContactIDs)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

// RegisterRoutes mounts the target list endpoints under group
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	contacts := group.Group("/contacts")
	{
		contacts.GET("", h.HandleListContacts)
		contacts.POST("", h.HandleAddContacts)
		contacts.POST("/filter", h.HandleFilterContacts)
		contacts.POST("/reload", h.HandleReloadContacts)
	}

	selection := group.Group("/selection")
	{
		selection.GET("", h.HandleGetSelection)
		selection.POST("/toggle", h.HandleToggleSelection)
		selection.POST("/select-all", h.HandleSelectAll)
		selection.DELETE("", h.HandleClearSelection)
	}

	lists := group.Group("/lists")
	{
		lists.GET("", h.HandleListSavedLists)
		lists.POST("", h.HandleSaveList)
		lists.GET("/:list_id", h.HandleGetSavedList)
		lists.PATCH("/:list_id", h.HandleRenameSavedList)
		lists.DELETE("/:list_id", h.HandleDeleteSavedList)
		lists.POST("/:list_id/resume", h.HandleResumeSavedList)
	}

	group.GET("/presets", h.HandleListPresets)
	group.GET("/presets/:key/contacts", h.HandleApplyPreset)
	group.POST("/campaign-targets", h.HandleCampaignTargets)
}
