package handler

import (
	"net/http"

	"adminisgo/internal/dto"
	"adminisgo/internal/service"

	"github.com/gin-gonic/gin"
)

type ComprasHandler struct{ svc service.CompraService }

func NewComprasHandler(svc service.CompraService) *ComprasHandler {
	return &ComprasHandler{svc: svc}
}

// Crear godoc
// @Summary      Registrar una orden de compra
// @Description  La compra nace pendiente; el stock entra recien con la recepcion.
// @Tags         compras
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CompraRequest true "Detalle de la compra"
// @Success      201  {object} dto.CompraResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/compras [post]
func (h *ComprasHandler) Crear(c *gin.Context) {
	var req dto.CompraRequest
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

func (h *ComprasHandler) Obtener(c *gin.Context) {
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
// @Summary      Reemplaza el detalle de una compra pendiente
// @Tags         compras
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de compra"
// @Param        body body dto.CompraRequest true "Nuevo detalle"
// @Success      200  {object} dto.CompraResponse
// @Failure      409  {object} apierror.APIError "Compra parcial o recibida"
// @Router       /v1/compras/{id} [put]
func (h *ComprasHandler) Editar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CompraRequest
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

func (h *ComprasHandler) Eliminar(c *gin.Context) {
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

func (h *ComprasHandler) AgregarPago(c *gin.Context) {
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

func (h *ComprasHandler) EliminarPago(c *gin.Context) {
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

// Recibir godoc
// @Summary      Registra mercaderia recibida
// @Description  Sin items recibe todo lo pendiente. Cada linea se limita a lo pendiente del item.
// @Tags         compras
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de compra"
// @Param        body body dto.RecepcionRequest false "Cantidades recibidas"
// @Success      200  {object} dto.CompraResponse
// @Failure      409  {object} apierror.APIError "Compra ya recibida"
// @Router       /v1/compras/{id}/recepcion [post]
func (h *ComprasHandler) Recibir(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.RecepcionRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Recibir(c.Request.Context(), usuarioID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
