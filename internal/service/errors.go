package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Domain errors. Services wrap them with a human-readable detail
// (fmt.Errorf("%w: ...")); handlers map them to HTTP status with errors.Is.
var (
	ErrValidacion     = errors.New("datos inválidos")
	ErrConflicto      = errors.New("conflicto")
	ErrEstadoTerminal = errors.New("operación no permitida en el estado actual")
	ErrNoEncontrado   = errors.New("no encontrado")
	ErrSinSesion      = errors.New("no hay sesión de caja abierta")
	ErrLimitePlan     = errors.New("límite del plan alcanzado")
)

func validacion(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidacion, fmt.Sprintf(format, args...))
}

// traducir maps storage errors onto domain errors; anything else passes through.
func traducir(err error, recurso string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNoEncontrado, recurso)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s duplicado", ErrConflicto, recurso)
	default:
		return err
	}
}
