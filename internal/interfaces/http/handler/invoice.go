package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/infrastructure/payment"
	"github.com/billing/backend/internal/interfaces/http/router"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// RegisterRoutes registers invoice routes on the given group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := router.NewDomainGroup("invoices", "/billing/invoices")
	invoices.POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.GetByID).
		GET("/number/:number", h.GetByNumber).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete).
		POST("/:id/transition", h.Transition).
		POST("/mark-overdue", h.MarkOverdue)

	items := invoices.Group("items", "/:id/items")
	items.POST("", h.AddItem).
		PUT("/:item_id", h.UpdateItem).
		DELETE("/:item_id", h.DeleteItem)

	pay := invoices.Group("payment", "/:id/payment")
	pay.GET("", h.PaymentReference).
		GET("/qr", h.PaymentQR)

	invoices.RegisterRoutes(rg)
}

// Create godoc
// @Summary      Create a new draft invoice
// @Description  Create a draft invoice with optional line items
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Idempotency key for safe retries"
// @Param        request body billingapp.CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req billingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), req, getIdempotencyKey(c), getOptionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// List godoc
// @Summary      List invoices
// @Description  List invoices with pagination and filtering
// @Tags         invoices
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        status query string false "Filter by status"
// @Param        client_id query string false "Filter by client" format(uuid)
// @Param        search query string false "Search in number and notes"
// @Success      200 {object} dto.Response{data=[]billingapp.InvoiceListItemResponse}
// @Router       /billing/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter billingapp.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if raw := c.Query("client_id"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid client ID format")
			return
		}
		filter.ClientID = &clientID
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), filter)
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
	h.SuccessWithMeta(c, invoices, total, page, pageSize)
}

// GetByID godoc
// @Summary      Get invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByNumber godoc
// @Summary      Get invoice by invoice number
// @Tags         invoices
// @Produce      json
// @Param        number path string true "Invoice number" example:"INV-20260901-0001"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/number/{number} [get]
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	invoice, err := h.invoiceService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Update godoc
// @Summary      Update invoice header fields
// @Description  Update issue date, due date, payment method or notes. Requires the current version.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body billingapp.UpdateInvoiceRequest true "Invoice update request"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req billingapp.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Delete godoc
// @Summary      Delete a draft invoice
// @Tags         invoices
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// AddItem godoc
// @Summary      Add a line item
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body billingapp.AddInvoiceItemRequest true "Line item request"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/items [post]
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req billingapp.AddInvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.AddItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// UpdateItem godoc
// @Summary      Update a line item
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Param        request body billingapp.UpdateInvoiceItemRequest true "Line item update request"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/items/{item_id} [put]
func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	itemID, ok := parseUUIDParam(c, "item_id")
	if !ok {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req billingapp.UpdateInvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.UpdateItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// DeleteItem godoc
// @Summary      Soft-delete a line item
// @Description  The item stays in storage for history but is excluded from totals
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Param        request body billingapp.DeleteInvoiceItemRequest true "Soft delete request"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/items/{item_id} [delete]
func (h *InvoiceHandler) DeleteItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	itemID, ok := parseUUIDParam(c, "item_id")
	if !ok {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req billingapp.DeleteInvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.SoftDeleteItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Transition godoc
// @Summary      Change invoice status
// @Description  Moves the invoice through its lifecycle. Leaving draft assigns the invoice number.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body billingapp.TransitionInvoiceRequest true "Status transition request"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      423 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/transition [post]
func (h *InvoiceHandler) Transition(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req billingapp.TransitionInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.TransitionStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// PaymentReference godoc
// @Summary      Get payment details
// @Description  Returns the payment reference and Pay by Square payload for a payable invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.PaymentReferenceResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/payment [get]
func (h *InvoiceHandler) PaymentReference(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identification required")
		return
	}

	reference, err := h.invoiceService.PaymentReference(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, reference)
}

// PaymentQR godoc
// @Summary      Get the payment QR code
// @Description  Renders the Pay by Square payload as a PNG QR code
// @Tags         invoices
// @Produce      png
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Success      200 {file} binary
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/payment/qr [get]
func (h *InvoiceHandler) PaymentQR(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identification required")
		return
	}

	reference, err := h.invoiceService.PaymentReference(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if reference.PaymentString == "" {
		h.NotFound(c, "No payment string available for this invoice")
		return
	}

	img, err := payment.QRCodePNG(reference.PaymentString)
	if err != nil {
		h.InternalError(c, "Failed to render payment QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", img)
}

// MarkOverdue godoc
// @Summary      Mark past-due invoices overdue
// @Description  Sweeps sent and pending invoices whose due date has passed
// @Tags         invoices
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /billing/invoices/mark-overdue [post]
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	marked, err := h.invoiceService.MarkOverdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"marked": marked})
}
