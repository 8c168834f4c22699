package entity

import "time"

// CacheState describes the connectivity of the cache as seen by the service.
type CacheState string

const (
	CacheConnected    CacheState = "connected"
	CacheDisconnected CacheState = "disconnected"
	CacheDisabled     CacheState = "disabled"
)

// Health is a point-in-time snapshot of the service dependencies.
type Health struct {
	Status    string
	Timestamp time.Time
	Cache     CacheState
}
