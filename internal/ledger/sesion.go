package ledger

import (
	"sort"
	"time"

	"adminisgo/internal/model"
)

// Sesion is a register session derived from the ledger: the interval between
// an apertura and the next cierre after it, if any.
type Sesion struct {
	Apertura model.RegistroCaja
	Cierre   *model.RegistroCaja
	// Apertura amounts with the latest correction applied.
	Inicial Totales
}

func (s Sesion) Abierta() bool { return s.Cierre == nil }

// Contiene reports whether t falls in [apertura, cierre).
func (s Sesion) Contiene(t time.Time) bool {
	if t.Before(s.Apertura.Fecha) {
		return false
	}
	return s.Cierre == nil || t.Before(s.Cierre.Fecha)
}

// ResolverSesion returns the active session: the most recent apertura with no
// cierre recorded after it. ok is false when the register is closed.
func ResolverSesion(registros []model.RegistroCaja) (Sesion, bool) {
	ordenados := ordenar(registros)

	idx := -1
	for i := len(ordenados) - 1; i >= 0; i-- {
		if ordenados[i].Tipo == model.RegistroApertura {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Sesion{}, false
	}
	for _, r := range ordenados[idx+1:] {
		if r.Tipo == model.RegistroCierre {
			return Sesion{}, false
		}
	}
	apertura := ordenados[idx]
	return Sesion{Apertura: apertura, Inicial: MontosVigentes(apertura, ordenados)}, true
}

// FechaPosterior returns now, or one microsecond after ultima when the clock
// has not moved past it. Postgres stores microseconds.
func FechaPosterior(ultima, now time.Time) time.Time {
	ultima = ultima.Truncate(time.Microsecond)
	if now.Truncate(time.Microsecond).After(ultima) {
		return now
	}
	return ultima.Add(time.Microsecond)
}

// UltimaFecha is the latest fecha in the ledger, zero when it is empty.
func UltimaFecha(registros []model.RegistroCaja) time.Time {
	var ultima time.Time
	for _, r := range registros {
		if r.Fecha.After(ultima) {
			ultima = r.Fecha
		}
	}
	return ultima
}

// Sesiones rebuilds every session in the ledger, most recent first.
// A cierre is paired with the latest apertura that precedes it.
func Sesiones(registros []model.RegistroCaja) []Sesion {
	ordenados := ordenar(registros)

	var out []Sesion
	for i, r := range ordenados {
		if r.Tipo != model.RegistroApertura {
			continue
		}
		s := Sesion{Apertura: r, Inicial: MontosVigentes(r, ordenados)}
		for j := i + 1; j < len(ordenados); j++ {
			if ordenados[j].Tipo == model.RegistroApertura {
				break
			}
			if ordenados[j].Tipo == model.RegistroCierre {
				cierre := ordenados[j]
				s.Cierre = &cierre
				break
			}
		}
		out = append(out, s)
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// MontosVigentes returns the amounts of entry overlaid by the most recent
// correccion that targets it.
func MontosVigentes(entry model.RegistroCaja, registros []model.RegistroCaja) Totales {
	vigente := entry
	for _, r := range registros {
		if r.Tipo != model.RegistroCorreccion || r.CorrigeID == nil || *r.CorrigeID != entry.ID {
			continue
		}
		if !r.Fecha.Before(vigente.Fecha) {
			vigente = r
		}
	}
	return Totales{
		Efectivo: vigente.Efectivo,
		Digital:  vigente.Digital,
		Credito:  vigente.Credito,
		Otro:     vigente.Otro,
	}
}

// ordenar sorts by fecha; entries sharing a fecha keep insertion order
// (Secuencia, or input order when it is unset).
func ordenar(registros []model.RegistroCaja) []model.RegistroCaja {
	out := make([]model.RegistroCaja, len(registros))
	copy(out, registros)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.Before(out[j].Fecha)
		}
		return out[i].Secuencia != 0 && out[j].Secuencia != 0 && out[i].Secuencia < out[j].Secuencia
	})
	return out
}
