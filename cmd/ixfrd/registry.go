package main

import (
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/ixfrd/ixfrd/ixfr"
)

// ZoneRegistry is the running set of zones ixfrd answers transfer
// queries for. Grounded on tdns/global.go's `var Zones =
// cmap.New[*ZoneData]()` — a concurrent map indexed by zone name,
// safe for the DNS engine's goroutine-per-connection handlers to read
// while the admin API registers or reloads zones concurrently.
type ZoneRegistry struct {
	zones cmap.ConcurrentMap[string, ixfr.Zone]
}

// NewZoneRegistry creates an empty registry.
func NewZoneRegistry() *ZoneRegistry {
	return &ZoneRegistry{zones: cmap.New[ixfr.Zone]()}
}

// FindZone implements ixfr.ZoneFinder.
func (r *ZoneRegistry) FindZone(owner string) (ixfr.Zone, bool) {
	return r.zones.Get(owner)
}

// Register adds or replaces the zone z under its own Name().
func (r *ZoneRegistry) Register(z ixfr.Zone) {
	r.zones.Set(z.Name(), z)
}

// Remove drops a zone from the registry, e.g. on config reload when a
// zone is no longer configured.
func (r *ZoneRegistry) Remove(name string) {
	r.zones.Remove(name)
}

// Names returns every registered zone name.
func (r *ZoneRegistry) Names() []string {
	return r.zones.Keys()
}
