package handler

import (
	"fmt"
	"net/http"

	"taller/internal/middleware"
	"taller/internal/repository"
	"taller/internal/service"
	"taller/pkg/pagination"
	"taller/pkg/response"

	"github.com/gin-gonic/gin"
)

type RepairHandler struct {
	repairService service.RepairService
}

func NewRepairHandler(repairService service.RepairService) *RepairHandler {
	return &RepairHandler{repairService: repairService}
}

func (h *RepairHandler) RegisterRoutes(router *gin.RouterGroup) {
	repairs := router.Group("/api/repairs")
	{
		repairs.GET("", h.ListRepairs)
		repairs.POST("", h.CreateRepair)
		repairs.GET("/:id", h.GetRepair)
		repairs.PUT("/:id", h.UpdateRepair)
		repairs.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteRepair)
		repairs.PUT("/:id/state", h.ChangeState)
		repairs.GET("/:id/history", h.History)
		repairs.GET("/:id/receipt", h.Receipt)
		repairs.GET("/:id/receipt.pdf", h.ReceiptPDF)
		repairs.GET("/:id/materials", h.Materials)
		repairs.POST("/:id/materials", h.RecordMaterial)
	}
}

// @Summary      List repairs
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Param        state     query     string  false  "Pendiente, En Proceso, Completado or Entregado"
// @Param        customer  query     string  false  "Customer name contains"
// @Param        model     query     string  false  "Model contains"
// @Success      200       {object}  response.Response{data=response.Page}
// @Failure      400       {object}  response.Response
// @Router       /api/repairs [get]
func (h *RepairHandler) ListRepairs(c *gin.Context) {
	p := pagination.Parse(c)
	repairs, total, err := h.repairService.List(c.Request.Context(), repository.RepairFilter{
		State:    c.Query("state"),
		Customer: c.Query("customer"),
		Model:    c.Query("model"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	res := make([]service.RepairResponse, 0, len(repairs))
	for i := range repairs {
		res = append(res, service.NewRepairResponse(&repairs[i]))
	}
	page(c, res, total, p.Page, p.Limit)
}

// CreateRepair registers a repair and its first history entry
// @Summary      Create repair
// @Tags         repairs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RepairRequest  true  "Repair"
// @Success      201      {object}  response.Response{data=service.RepairResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/repairs [post]
func (h *RepairHandler) CreateRepair(c *gin.Context) {
	var req service.RepairRequest
	if !bindAndValidate(c, &req) {
		return
	}
	repair, err := h.repairService.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, service.NewRepairResponse(repair)))
}

// @Summary      Get repair
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Repair ID"
// @Success      200  {object}  response.Response{data=service.RepairResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id} [get]
func (h *RepairHandler) GetRepair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	repair, err := h.repairService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.NewRepairResponse(repair)))
}

// @Summary      Update repair
// @Tags         repairs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                    true  "Repair ID"
// @Param        payload  body      service.RepairRequest  true  "Repair"
// @Success      200      {object}  response.Response{data=service.RepairResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/repairs/{id} [put]
func (h *RepairHandler) UpdateRepair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.RepairRequest
	if !bindAndValidate(c, &req) {
		return
	}
	repair, err := h.repairService.Update(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.NewRepairResponse(repair)))
}

// @Summary      Delete repair
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Repair ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id} [delete]
func (h *RepairHandler) DeleteRepair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.repairService.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Repair deleted"}))
}

// ChangeState moves the repair to any of the four states, backwards included
// @Summary      Change repair state
// @Tags         repairs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                               true  "Repair ID"
// @Param        payload  body      service.ChangeRepairStateRequest  true  "New state"
// @Success      200      {object}  response.Response{data=service.RepairResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/repairs/{id}/state [put]
func (h *RepairHandler) ChangeState(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ChangeRepairStateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	repair, err := h.repairService.ChangeState(c.Request.Context(), middleware.UserID(c), id, req.State, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.NewRepairResponse(repair)))
}

// @Summary      Repair state history
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Repair ID"
// @Success      200  {object}  response.Response{data=[]model.RepairHistory}
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id}/history [get]
func (h *RepairHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.repairService.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// @Summary      Repair receipt
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Repair ID"
// @Success      200  {object}  response.Response{data=model.Receipt}
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id}/receipt [get]
func (h *RepairHandler) Receipt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	receipt, err := h.repairService.GenerateReceipt(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, receipt))
}

// @Summary      Repair receipt as PDF
// @Tags         repairs
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path      int  true  "Repair ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id}/receipt.pdf [get]
func (h *RepairHandler) ReceiptPDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, receipt, err := h.repairService.ReceiptPDF(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, receipt.Number))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// @Summary      Materials used by a repair
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Repair ID"
// @Success      200  {object}  response.Response{data=[]model.MaterialUsage}
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id}/materials [get]
func (h *RepairHandler) Materials(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	usages, err := h.repairService.Materials(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, usages))
}

// RecordMaterial attaches material usage; consume=true also decrements stock
// @Summary      Record material used by a repair
// @Tags         repairs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                                  true  "Repair ID"
// @Param        payload  body      service.RecordRepairMaterialRequest  true  "Usage"
// @Success      201      {object}  response.Response{data=model.MaterialUsage}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/repairs/{id}/materials [post]
func (h *RepairHandler) RecordMaterial(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.RecordRepairMaterialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usage, err := h.repairService.RecordMaterial(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, usage))
}
