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

type ToolHandler struct {
	toolService service.ToolService
}

func NewToolHandler(toolService service.ToolService) *ToolHandler {
	return &ToolHandler{toolService: toolService}
}

// RegisterRoutes mounts the tool endpoints. :ref is a numeric id or an exact tool name.
func (h *ToolHandler) RegisterRoutes(router *gin.RouterGroup) {
	tools := router.Group("/api/tools")
	{
		tools.GET("", h.ListTools)
		tools.POST("", h.CreateTool)
		tools.GET("/:ref", h.GetTool)
		tools.DELETE("/:ref", middleware.RequireRole("admin"), h.DeleteTool)
		tools.PUT("/:ref/stock", h.UpdateStock)
		tools.POST("/:ref/assign", h.Assign)
		tools.POST("/:ref/return", h.Return)
	}
}

// @Summary      List tools
// @Tags         tools
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Search by name"
// @Param        status  query     string  false  "Disponible or En Uso"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/tools [get]
func (h *ToolHandler) ListTools(c *gin.Context) {
	p := pagination.Parse(c)
	tools, total, err := h.toolService.ListTools(c.Request.Context(), repository.ToolFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	page(c, tools, total, p.Page, p.Limit)
}

// @Summary      Create tool
// @Tags         tools
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateToolRequest  true  "Tool"
// @Success      201      {object}  response.Response{data=model.Tool}
// @Failure      400      {object}  response.Response
// @Router       /api/tools [post]
func (h *ToolHandler) CreateTool(c *gin.Context) {
	var req service.CreateToolRequest
	if !bindAndValidate(c, &req) {
		return
	}
	tool, err := h.toolService.CreateTool(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tool))
}

// @Summary      Get tool by id or name
// @Tags         tools
// @Security     BearerAuth
// @Produce      json
// @Param        ref  path      string  true  "Tool id or name"
// @Success      200  {object}  response.Response{data=model.Tool}
// @Failure      404  {object}  response.Response
// @Router       /api/tools/{ref} [get]
func (h *ToolHandler) GetTool(c *gin.Context) {
	tool, err := h.toolService.GetTool(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tool))
}

// UpdateStock replaces the tool counters and clears any tracked assignment
// @Summary      Replace tool stock
// @Tags         tools
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        ref      path      string                          true  "Tool id or name"
// @Param        payload  body      service.UpdateToolStockRequest  true  "New total"
// @Success      200      {object}  response.Response{data=model.Tool}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tools/{ref}/stock [put]
func (h *ToolHandler) UpdateStock(c *gin.Context) {
	var req service.UpdateToolStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	tool, err := h.toolService.UpdateStock(c.Request.Context(), middleware.UserID(c), c.Param("ref"), req.TotalQuantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tool))
}

// @Summary      Assign one unit
// @Tags         tools
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        ref      path      string                     true  "Tool id or name"
// @Param        payload  body      service.AssignToolRequest  true  "Holder"
// @Success      200      {object}  response.Response{data=model.Tool}
// @Failure      409      {object}  response.Response "No stock available"
// @Router       /api/tools/{ref}/assign [post]
func (h *ToolHandler) Assign(c *gin.Context) {
	var req service.AssignToolRequest
	if !bindAndValidate(c, &req) {
		return
	}
	tool, err := h.toolService.Assign(c.Request.Context(), middleware.UserID(c), c.Param("ref"), req.Holder)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tool))
}

// @Summary      Return one unit
// @Tags         tools
// @Security     BearerAuth
// @Produce      json
// @Param        ref  path      string  true  "Tool id or name"
// @Success      200  {object}  response.Response{data=model.Tool}
// @Failure      409  {object}  response.Response "No units checked out"
// @Router       /api/tools/{ref}/return [post]
func (h *ToolHandler) Return(c *gin.Context) {
	tool, err := h.toolService.Return(c.Request.Context(), middleware.UserID(c), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tool))
}

// @Summary      Delete tool
// @Tags         tools
// @Security     BearerAuth
// @Produce      json
// @Param        ref  path      string  true  "Tool id or name"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tools/{ref} [delete]
func (h *ToolHandler) DeleteTool(c *gin.Context) {
	if err := h.toolService.DeleteTool(c.Request.Context(), middleware.UserID(c), c.Param("ref")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tool deleted"}))
}
