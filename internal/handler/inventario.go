package handler

import (
	"net/http"

	"adminisgo/internal/dto"
	"adminisgo/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// ListarMovimientos godoc
// @Summary Historial de movimientos de stock de un producto
// @Tags inventario
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de producto"
// @Param tipo query string false "venta | reversion_venta | recepcion | reversion_recepcion"
// @Success 200 {object} dto.MovimientoStockListResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/productos/{id}/movimientos [get]
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var filter dto.MovimientoStockFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), id, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerAlertas godoc
// @Summary Productos en o por debajo del stock minimo
// @Tags inventario
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AlertaStockResponse
// @Router /v1/inventario/alertas [get]
func (h *InventarioHandler) ObtenerAlertas(c *gin.Context) {
	resp, err := h.svc.ObtenerAlertas(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
