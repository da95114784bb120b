// Package subs owns the live WebSocket subscriptions: one persistent
// socket for the program log feed and one dedicated socket per tracked
// reserve account. It also owns the pool table keyed by mint.
package subs

import (
	"context"
	"time"
)

// Role identifies which side of a pool a reserve account belongs to.
type Role string

// Reserve account roles.
const (
	RolePool1 Role = "pool1"
	RolePool2 Role = "pool2"
)

// LogEvent is one program log notification from the log feed.
type LogEvent struct {
	Slot      int64
	Logs      []string
	Signature string
	Err       interface{}
}

// AccountUpdate is one balance update from an account subscription.
type AccountUpdate struct {
	Address   string
	Mint      string
	Role      Role
	Timestamp time.Time
	UIAmount  float64
}

// AccountHandler consumes balance updates routed by the Manager.
type AccountHandler interface {
	HandleAccountUpdate(ctx context.Context, update AccountUpdate)
}

// PoolRecord describes one discovered pool. Sold transitions false to true
// exactly once and never back.
type PoolRecord struct {
	PoolAddress string
	ReserveA    string
	ReserveB    string
	Mint        string
	Creator     string
	Sold        bool
}
