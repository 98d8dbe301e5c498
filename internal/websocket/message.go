package websocket

import "encoding/json"

type OutgoingMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type IncomingMessage struct {
	From  string          `json:"-"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ActionPayload is the tagged payload of an "action" event. Amount is only
// meaningful for BET, Accept only for INSURANCE.
type ActionPayload struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
	Accept *bool  `json:"accept,omitempty"`
}
