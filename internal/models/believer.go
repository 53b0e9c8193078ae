package models

import "time"

// Column names of tbl_creyentes. This is the only set of identifiers the
// storage layer will interpolate into SQL; values are always bound.
const (
	ColID              = "Id"
	ColCedula          = "Cedula"
	ColNombre          = "Nombre"
	ColApellido        = "Apellido"
	ColIDProfesion     = "IdProfesion"
	ColOcupacion       = "Ocupacion"
	ColCorreo          = "Correo"
	ColTelefonoLocal   = "TelefonoLocal"
	ColTelefonoCelular = "TelefonoCelular"
	ColSexo            = "Sexo"
	ColFechaIngreso    = "FechaIngreso"
	ColNacionalidad    = "Nacionalidad"
	ColEstadoCivil     = "EstadoCivil"
	ColEncuentro       = "Encuentro"
	ColConsolidacion   = "Consolidacion"
	ColAcademia        = "Academia"
	ColLanzamiento     = "Lanzamiento"
	ColFechaNac        = "FechaNac"
	ColCodRed          = "CodRed"
	ColFechaBautizo    = "FechaBautizo"
	ColEstatus         = "Estatus"
	ColEstado          = "Estado"
	ColCiudad          = "Ciudad"
	ColDireccion       = "Direccion"
	ColFechaIn         = "fe_us_in"
	ColUserIn          = "co_us_in"
	ColFechaMod        = "fe_us_mo"
	ColUserMod         = "co_us_mo"
)

// BelieverColumns is the fixed allow-list of writable column names, in table
// order. Form payloads are filtered against this list before they reach SQL.
var BelieverColumns = []string{
	ColID,
	ColCedula,
	ColNombre,
	ColApellido,
	ColIDProfesion,
	ColOcupacion,
	ColCorreo,
	ColTelefonoLocal,
	ColTelefonoCelular,
	ColSexo,
	ColFechaIngreso,
	ColNacionalidad,
	ColEstadoCivil,
	ColEncuentro,
	ColConsolidacion,
	ColAcademia,
	ColLanzamiento,
	ColFechaNac,
	ColCodRed,
	ColFechaBautizo,
	ColEstatus,
	ColEstado,
	ColCiudad,
	ColDireccion,
	ColFechaIn,
	ColUserIn,
	ColFechaMod,
	ColUserMod,
}

var believerColumnSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(BelieverColumns))
	for _, c := range BelieverColumns {
		set[c] = struct{}{}
	}
	return set
}()

// IsBelieverColumn reports whether name is in the allow-list.
func IsBelieverColumn(name string) bool {
	_, ok := believerColumnSet[name]
	return ok
}

// Believer is a row of tbl_creyentes. Nullable columns use pointers so that
// absent values survive the round trip to JSON and back.
type Believer struct {
	ID              int64      `json:"id"`
	Cedula          string     `json:"cedula"`
	Nombre          string     `json:"nombre"`
	Apellido        string     `json:"apellido"`
	IDProfesion     *int64     `json:"id_profesion"`
	Ocupacion       *string    `json:"ocupacion"`
	Correo          *string    `json:"correo"`
	TelefonoLocal   *string    `json:"telefono_local"`
	TelefonoCelular *string    `json:"telefono_celular"`
	Sexo            *string    `json:"sexo"`
	FechaIngreso    *time.Time `json:"fecha_ingreso"`
	Nacionalidad    *string    `json:"nacionalidad"`
	EstadoCivil     *string    `json:"estado_civil"`
	Encuentro       *bool      `json:"encuentro"`
	Consolidacion   *bool      `json:"consolidacion"`
	Academia        *bool      `json:"academia"`
	Lanzamiento     *bool      `json:"lanzamiento"`
	FechaNac        *time.Time `json:"fecha_nac"`
	CodRed          *string    `json:"cod_red"`
	FechaBautizo    *time.Time `json:"fecha_bautizo"`
	Estatus         *int16     `json:"estatus"`
	Estado          *string    `json:"estado"`
	Ciudad          *string    `json:"ciudad"`
	Direccion       *string    `json:"direccion"`
	FechaIn         *time.Time `json:"fe_us_in"`
	UserIn          *int64     `json:"co_us_in"`
	FechaMod        *time.Time `json:"fe_us_mo"`
	UserMod         *int64     `json:"co_us_mo"`
}

// Row converts the record into a column-keyed map, the shape the reconciler
// diffs against edited grid rows. Nil pointers become nil values.
func (b Believer) Row() map[string]any {
	return map[string]any{
		ColID:              b.ID,
		ColCedula:          b.Cedula,
		ColNombre:          b.Nombre,
		ColApellido:        b.Apellido,
		ColIDProfesion:     derefAny(b.IDProfesion),
		ColOcupacion:       derefAny(b.Ocupacion),
		ColCorreo:          derefAny(b.Correo),
		ColTelefonoLocal:   derefAny(b.TelefonoLocal),
		ColTelefonoCelular: derefAny(b.TelefonoCelular),
		ColSexo:            derefAny(b.Sexo),
		ColFechaIngreso:    derefAny(b.FechaIngreso),
		ColNacionalidad:    derefAny(b.Nacionalidad),
		ColEstadoCivil:     derefAny(b.EstadoCivil),
		ColEncuentro:       derefAny(b.Encuentro),
		ColConsolidacion:   derefAny(b.Consolidacion),
		ColAcademia:        derefAny(b.Academia),
		ColLanzamiento:     derefAny(b.Lanzamiento),
		ColFechaNac:        derefAny(b.FechaNac),
		ColCodRed:          derefAny(b.CodRed),
		ColFechaBautizo:    derefAny(b.FechaBautizo),
		ColEstatus:         derefAny(b.Estatus),
		ColEstado:          derefAny(b.Estado),
		ColCiudad:          derefAny(b.Ciudad),
		ColDireccion:       derefAny(b.Direccion),
		ColFechaIn:         derefAny(b.FechaIn),
		ColUserIn:          derefAny(b.UserIn),
		ColFechaMod:        derefAny(b.FechaMod),
		ColUserMod:         derefAny(b.UserMod),
	}
}

func derefAny[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Network is a row of the tbl_redes lookup table.
type Network struct {
	CodRed    string `json:"cod_red"`
	NombreRed string `json:"nombre_red"`
}

// Profession is a row of the tbl_profesiones lookup table.
type Profession struct {
	IDProfesion int64  `json:"id_profesion"`
	Descripcion string `json:"descripcion_profesion"`
}
