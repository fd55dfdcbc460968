package handler

import (
	"errors"
	"net/http"
	"reflect"

	"adminisgo/internal/apierror"
	"adminisgo/internal/middleware"
	"adminisgo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal validates as a float so min=0 / gt=0 work on money fields.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false after writing the error response; the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses a uuid path parameter, writing 400 when malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// usuarioID is the operator reference carried by the bearer token.
func usuarioID(c *gin.Context) uuid.UUID {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	id, _ := uuid.Parse(claims.UserID)
	return id
}

// writeError maps domain errors to HTTP status codes. Anything unknown is
// logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	status, codigo := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, service.ErrValidacion):
		status, codigo = http.StatusUnprocessableEntity, "validacion"
	case errors.Is(err, service.ErrConflicto):
		status, codigo = http.StatusConflict, "conflicto"
	case errors.Is(err, service.ErrEstadoTerminal):
		status, codigo = http.StatusConflict, "estado_terminal"
	case errors.Is(err, service.ErrSinSesion):
		status, codigo = http.StatusConflict, "sin_sesion"
	case errors.Is(err, service.ErrNoEncontrado):
		status, codigo = http.StatusNotFound, "no_encontrado"
	case errors.Is(err, service.ErrLimitePlan):
		status, codigo = http.StatusForbidden, "limite_plan"
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("error no controlado")
		c.JSON(status, apierror.New("Error interno del servidor"))
		return
	}
	c.JSON(status, apierror.NewCodigo(codigo, err.Error()))
}
