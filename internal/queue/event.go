// Package queue defines the resource lifecycle events carried over RabbitMQ
// and the audit consumer that records them.
package queue

import "time"

// Operations reported in ResourceEvent.Op.
const (
	OpCreate    = "create"     // POST on a collection
	OpPutCreate = "put_create" // PUT on a missing id
	OpReplace   = "put"        // PUT on an existing id
	OpPatch     = "patch"
	OpDelete    = "delete"
	OpSignup    = "signup"
)

// ResourceEvent is published after a mutation has been committed. ActorID
// is the authenticated user's id, or zero for sign-up.
type ResourceEvent struct {
	Kind    string    `json:"kind"`
	Op      string    `json:"op"`
	ID      uint64    `json:"id"`
	ActorID uint64    `json:"actor_id,omitempty"`
	At      time.Time `json:"at"`
}
