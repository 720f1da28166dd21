package http

import "gungi-server/internal/session"

// RoomListResponse is the /current_rooms projection of the registry.
type RoomListResponse []session.RoomSummary

// ShieldsResponse feeds the shields.io badge endpoint.
type ShieldsResponse struct {
	Label   string `json:"label"`
	Message string `json:"message"`
	LogoSvg string `json:"logoSvg"`
}
