package models

// Notification is a change pushed by the server for a live query.
type Notification struct {
	ID     UUID   `json:"id" cbor:"id"`
	Action Action `json:"action" cbor:"action"`
	Result any    `json:"result" cbor:"result"`
}

type Action string

const (
	CreateAction Action = "CREATE"
	UpdateAction Action = "UPDATE"
	DeleteAction Action = "DELETE"
	KilledAction Action = "KILLED"
)
