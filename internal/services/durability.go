package services

// Durability reports how far a fallback-capable write actually got. Remote
// failures are not surfaced as errors on the cart/guest paths; callers that
// care (and tests) inspect the returned Durability instead.
type Durability int

const (
	// DurabilityNone means nothing was persisted (or there was nothing to
	// persist).
	DurabilityNone Durability = iota
	// DurabilityLocal means only the device-local mirror holds the state.
	DurabilityLocal
	// DurabilityRemote means the remote store accepted the write.
	DurabilityRemote
)

func (d Durability) String() string {
	switch d {
	case DurabilityLocal:
		return "local"
	case DurabilityRemote:
		return "remote"
	default:
		return "none"
	}
}
