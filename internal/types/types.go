package types

import "github.com/DoyleJ11/lol-inhouse-queue/internal/engine"

const (
	MsgUpdateAvailability = "UpdateAvailability"
	MsgUpdateReady        = "UpdateReady"
)

const (
	MsgLaunchStatus      = "LaunchStatus"
	MsgAvailabilityAck   = "AvailabilityAck"
	MsgReadyAck          = "ReadyAck"
	MsgReadyCheckOpened  = "ReadyCheckOpened"
	MsgReadyCheckAborted = "ReadyCheckAborted"
	MsgReplay            = "Replay"
	MsgError             = "Error"
)

type ClientMessage struct {
	Type    string   `json:"type"` // "UpdateAvailability" | "UpdateReady"
	Roles   []string `json:"roles,omitempty"`
	Captain bool     `json:"captain,omitempty"`
	Ready   bool     `json:"ready,omitempty"`
}

type ServerMessage struct {
	Type       string             `json:"type"`
	Version    int                `json:"version,omitempty"`
	Status     *Status            `json:"status,omitempty"`
	Membership *engine.Membership `json:"membership,omitempty"`
	InProgress bool               `json:"inProgress"`
	Ready      bool               `json:"ready"`
	Error      string             `json:"error,omitempty"`
}

// User identifies a connected player.
type User struct {
	ID    string `json:"id"`
	Alias string `json:"alias"`
}

type RoleStatus struct {
	Role  string `json:"role"`
	Users []User `json:"users"`
}

// Status is the launch status as observers see it.
type Status struct {
	Availability []RoleStatus       `json:"availability"`
	Captains     []User             `json:"captains"`
	Deficits     []engine.Deficit   `json:"deficits"`
	Unmet        []engine.Condition `json:"unmet"`
	InProgress   bool               `json:"inProgress"`
}

func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: MsgError, Error: msg}
}
