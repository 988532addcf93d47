package handler

import (
	"github.com/gin-gonic/gin"

	billingapp "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/interfaces/http/router"
)

// ClientHandler handles client-related API endpoints
type ClientHandler struct {
	BaseHandler
	clientService *billingapp.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *billingapp.ClientService) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
	}
}

// RegisterRoutes registers client routes on the given group
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clients := router.NewDomainGroup("clients", "/billing/clients")
	clients.POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.GetByID).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete)

	notes := clients.Group("notes", "/:id/notes")
	notes.POST("", h.AddNote).
		GET("", h.ListNotes)

	clients.RegisterRoutes(rg)
}

// Create godoc
// @Summary      Create a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        request body billingapp.CreateClientRequest true "Client creation request"
// @Success      201 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req billingapp.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), req, getOptionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, client)
}

// List godoc
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        type query string false "Filter by client type" Enums(company, individual)
// @Param        search query string false "Search in name, email and tax numbers"
// @Success      200 {object} dto.Response{data=[]billingapp.ClientResponse}
// @Router       /billing/clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	var filter billingapp.ClientListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	clients, total, err := h.clientService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, clients, total, page, pageSize)
}

// GetByID godoc
// @Summary      Get client by ID
// @Tags         clients
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/clients/{id} [get]
func (h *ClientHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	client, err := h.clientService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Update godoc
// @Summary      Update a client
// @Description  Partial update. Requires the current version for optimistic locking.
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Param        request body billingapp.UpdateClientRequest true "Client update request"
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/clients/{id} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	var req billingapp.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), id, req, getOptionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Delete godoc
// @Summary      Delete a client
// @Tags         clients
// @Param        id path string true "Client ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/clients/{id} [delete]
func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// AddNote godoc
// @Summary      Attach a note to a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Param        request body billingapp.AddClientNoteRequest true "Note request"
// @Success      201 {object} dto.Response{data=billingapp.ClientNoteResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/clients/{id}/notes [post]
func (h *ClientHandler) AddNote(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	var req billingapp.AddClientNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	note, err := h.clientService.AddNote(c.Request.Context(), id, req, getOptionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, note)
}

// ListNotes godoc
// @Summary      List client notes
// @Tags         clients
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]billingapp.ClientNoteResponse}
// @Router       /billing/clients/{id}/notes [get]
func (h *ClientHandler) ListNotes(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	notes, err := h.clientService.ListNotes(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, notes)
}
