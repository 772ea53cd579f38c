package router

import (
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

// routeEntry records which endpoint a (system, component) pair was last
// heard from, and when. lastSeen is recorded but not read anywhere; routing
// decisions only need the endpoint key.
type routeEntry struct {
	endpoint string
	lastSeen time.Time
}

// routeTable is owned exclusively by the router's single coordinator
// goroutine; it is never touched from any other goroutine, so it carries
// no lock of its own (per the concurrency model: one goroutine, no
// explicit locks on RouterState).
type routeTable struct {
	bySysComp map[mavlink.Key]routeEntry
	bySystem  map[uint8]routeEntry
	byComp    map[uint8]routeEntry
}

func newRouteTable() *routeTable {
	return &routeTable{
		bySysComp: make(map[mavlink.Key]routeEntry),
		bySystem:  make(map[uint8]routeEntry),
		byComp:    make(map[uint8]routeEntry),
	}
}

// learn records that endpoint is the most recent source of (sys, comp).
func (rt *routeTable) learn(sys, comp uint8, endpoint string, now time.Time) {
	e := routeEntry{endpoint: endpoint, lastSeen: now}
	rt.bySysComp[mavlink.Key{SystemID: sys, ComponentID: comp}] = e
	rt.bySystem[sys] = e
	rt.byComp[comp] = e
}

func (rt *routeTable) lookupSystemComponent(sys, comp uint8) (string, bool) {
	e, ok := rt.bySysComp[mavlink.Key{SystemID: sys, ComponentID: comp}]
	return e.endpoint, ok
}

func (rt *routeTable) lookupSystem(sys uint8) (string, bool) {
	e, ok := rt.bySystem[sys]
	return e.endpoint, ok
}

func (rt *routeTable) lookupComponent(comp uint8) (string, bool) {
	e, ok := rt.byComp[comp]
	return e.endpoint, ok
}

func (rt *routeTable) size() int { return len(rt.bySysComp) }
