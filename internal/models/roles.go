package models

import "fmt"

// Role names seeded in the role table.
const (
	RoleAdmin    = "administrador"
	RoleEditor   = "editor"
	RoleConsulta = "consulta"
)

// Permission actions over the believers resource.
const (
	ResourceCreyentes = "creyentes"

	ActionRead   = "leer"
	ActionCreate = "crear"
	ActionEdit   = "editar"
	ActionDelete = "eliminar"
)

// Role exposes the permission check used to gate every believers operation.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"role"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the role grants the given action on the given
// resource. Permission names are stored as "resource:action".
func (r Role) HasPermission(resource, action string) bool {
	want := fmt.Sprintf("%s:%s", resource, action)
	for _, p := range r.Permissions {
		if p == want {
			return true
		}
	}
	return false
}
