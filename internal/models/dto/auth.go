package dto

import "github.com/jdorantes1987/aapn-nc/internal/models"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// ExistsResponse answers the first stage of the two-step login flow, where the
// username is validated before the password prompt is shown.
type ExistsResponse struct {
	Username string `json:"username"`
	Exists   bool   `json:"exists"`
}
