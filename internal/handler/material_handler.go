package handler

import (
	"net/http"

	"taller/internal/middleware"
	"taller/internal/repository"
	"taller/internal/service"
	"taller/pkg/pagination"
	"taller/pkg/response"

	"github.com/gin-gonic/gin"
)

type MaterialHandler struct {
	materialService service.MaterialService
	usageService    service.UsageService
}

func NewMaterialHandler(materialService service.MaterialService, usageService service.UsageService) *MaterialHandler {
	return &MaterialHandler{materialService: materialService, usageService: usageService}
}

func (h *MaterialHandler) RegisterRoutes(router *gin.RouterGroup) {
	materials := router.Group("/api/materials")
	{
		materials.GET("", h.ListMaterials)
		materials.POST("", h.CreateMaterial)
		materials.GET("/low-stock", h.LowStock)
		materials.GET("/:id", h.GetMaterial)
		materials.PUT("/:id", h.EditMaterial)
		materials.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteMaterial)
		materials.PUT("/:id/stock", h.UpdateStock)
		materials.POST("/:id/consume", h.ConsumeMaterial)
		materials.GET("/:id/history", h.ListHistory)
		materials.GET("/:id/ledger", h.LedgerReport)
	}

	usages := router.Group("/api/material-usages")
	{
		usages.GET("", h.UsageForDocument)
		usages.POST("", h.RecordUsage)
		usages.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteUsage)
	}
}

// ListMaterials returns active materials
// @Summary      List materials
// @Description  Active materials, newest first, optionally filtered by search text and category
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Param        search    query     string  false  "Search in name and description"
// @Param        category  query     string  false  "Exact category"
// @Success      200       {object}  response.Response{data=response.Page}
// @Failure      500       {object}  response.Response
// @Router       /api/materials [get]
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	p := pagination.Parse(c)
	materials, total, err := h.materialService.ListMaterials(c.Request.Context(), repository.MaterialFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	page(c, materials, total, p.Page, p.Limit)
}

// CreateMaterial registers a material; a positive starting quantity is recorded as an entrada
// @Summary      Create material
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMaterialRequest  true  "Material"
// @Success      201      {object}  response.Response{data=model.Material}
// @Failure      400      {object}  response.Response
// @Router       /api/materials [post]
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateMaterialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	material, err := h.materialService.CreateMaterial(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, material))
}

// @Summary      Get material
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Material ID"
// @Success      200  {object}  response.Response{data=model.Material}
// @Failure      404  {object}  response.Response
// @Router       /api/materials/{id} [get]
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	material, err := h.materialService.GetMaterial(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// EditMaterial changes descriptive fields; quantity is only changed through /stock
// @Summary      Edit material
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                          true  "Material ID"
// @Param        payload  body      service.EditMaterialRequest  true  "Material fields"
// @Success      200      {object}  response.Response{data=model.Material}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/materials/{id} [put]
func (h *MaterialHandler) EditMaterial(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.EditMaterialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	material, err := h.materialService.EditMaterial(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// @Summary      Delete material
// @Description  Logical delete; the movement history stays readable
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Material ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/materials/{id} [delete]
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.materialService.DeleteMaterial(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Material deleted"}))
}

// UpdateStock sets the on-hand quantity and records the difference in the ledger
// @Summary      Set material stock
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                         true  "Material ID"
// @Param        payload  body      service.UpdateStockRequest  true  "New quantity"
// @Success      200      {object}  response.Response{data=model.Material}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/materials/{id}/stock [put]
func (h *MaterialHandler) UpdateStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	material, err := h.materialService.UpdateStock(c.Request.Context(), middleware.UserID(c), id, *req.Quantity, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// @Summary      Consume material
// @Description  Decrements stock for a repair or order and records the usage
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                             true  "Material ID"
// @Param        payload  body      service.ConsumeMaterialRequest  true  "Consumption"
// @Success      201      {object}  response.Response{data=model.MaterialUsage}
// @Failure      409      {object}  response.Response
// @Router       /api/materials/{id}/consume [post]
func (h *MaterialHandler) ConsumeMaterial(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ConsumeMaterialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usage, err := h.materialService.ConsumeMaterial(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, usage))
}

// @Summary      Material movement history
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Material ID"
// @Success      200  {object}  response.Response{data=[]model.StockMovement}
// @Failure      404  {object}  response.Response
// @Router       /api/materials/{id}/history [get]
func (h *MaterialHandler) ListHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	movements, err := h.materialService.ListHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, movements))
}

// @Summary      Material ledger reconciliation
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Material ID"
// @Success      200  {object}  response.Response{data=model.LedgerBalance}
// @Failure      404  {object}  response.Response
// @Router       /api/materials/{id}/ledger [get]
func (h *MaterialHandler) LedgerReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	report, err := h.materialService.LedgerReport(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// @Summary      Materials at or below their stock minimum
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Material}
// @Router       /api/materials/low-stock [get]
func (h *MaterialHandler) LowStock(c *gin.Context) {
	materials, err := h.materialService.LowStock(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, materials))
}

// UsageForDocument lists usage rows of one repair or order
// @Summary      List material usage
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        document_kind  query     string  true  "reparacion or pedido"
// @Param        document_id    query     int     true  "Document ID"
// @Success      200            {object}  response.Response{data=object}
// @Failure      400            {object}  response.Response
// @Router       /api/material-usages [get]
func (h *MaterialHandler) UsageForDocument(c *gin.Context) {
	var query struct {
		DocumentKind string `form:"document_kind" binding:"required"`
		DocumentID   uint   `form:"document_id" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "Invalid query: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	usages, err := h.usageService.UsageForDocument(ctx, query.DocumentKind, query.DocumentID)
	if err != nil {
		writeError(c, err)
		return
	}
	cost, err := h.usageService.CostForDocument(ctx, query.DocumentKind, query.DocumentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"usages": usages, "total_cost": cost}))
}

// RecordUsage appends to the consumption ledger without touching stock
// @Summary      Record material usage
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordUsageRequest  true  "Usage"
// @Success      201      {object}  response.Response{data=model.MaterialUsage}
// @Failure      400      {object}  response.Response
// @Router       /api/material-usages [post]
func (h *MaterialHandler) RecordUsage(c *gin.Context) {
	var req service.RecordUsageRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usage, err := h.usageService.RecordUsage(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, usage))
}

// @Summary      Delete material usage
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Usage ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/material-usages/{id} [delete]
func (h *MaterialHandler) DeleteUsage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.usageService.DeleteUsage(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Usage deleted"}))
}
