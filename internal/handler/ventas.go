package handler

import (
	"net/http"

	"adminisgo/internal/dto"
	"adminisgo/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// Crear godoc
// @Summary      Registrar una venta
// @Description  Valida items y pagos, descuenta stock y registra los pagos en una sola transaccion.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.VentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      403  {object} apierror.APIError "Limite del plan"
// @Failure      409  {object} apierror.APIError "Numero duplicado"
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) Crear(c *gin.Context) {
	var req dto.VentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Venta con items, pagos y liquidacion
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID de venta"
// @Success      200  {object} dto.VentaResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) Obtener(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Editar godoc
// @Summary      Reemplaza items y pagos de una venta
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de venta"
// @Param        body body dto.VentaRequest true "Nuevo detalle"
// @Success      200  {object} dto.VentaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/ventas/{id} [put]
func (h *VentasHandler) Editar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.VentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Editar(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary      Elimina una venta y devuelve su stock
// @Tags         ventas
// @Security     BearerAuth
// @Param        id path string true "ID de venta"
// @Success      204
// @Failure      409  {object} apierror.APIError "Ya eliminada"
// @Router       /v1/ventas/{id} [delete]
func (h *VentasHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AgregarPago godoc
// @Summary      Registra un pago parcial
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de venta"
// @Param        body body dto.PagoRequest true "Pago"
// @Success      201  {object} dto.VentaResponse
// @Router       /v1/ventas/{id}/pagos [post]
func (h *VentasHandler) AgregarPago(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.PagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarPago(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// EliminarPago godoc
// @Summary      Quita un pago y recalcula la deuda
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id     path string true "ID de venta"
// @Param        pagoId path string true "ID de pago"
// @Success      200  {object} dto.VentaResponse
// @Router       /v1/ventas/{id}/pagos/{pagoId} [delete]
func (h *VentasHandler) EliminarPago(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pagoID, ok := paramID(c, "pagoId")
	if !ok {
		return
	}
	resp, err := h.svc.EliminarPago(c.Request.Context(), id, pagoID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
