package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ixfrd/ixfrd/ixfr"
)

// APIdispatcher starts one HTTP listener per configured admin
// address, grounded on tdns/apirouters.go's APIdispatcher (there
// TLS-only; ixfrd runs the admin API in the clear, since its only
// secret is the X-API-Key header already carried over the same
// connection).
func APIdispatcher(conf *Config) {
	router, err := SetupAPIRouter(conf)
	if err != nil {
		log.Printf("APIdispatcher: %v, admin API not started\n", err)
		return
	}

	for _, address := range conf.Apiserver.Addresses {
		addr := address
		go func() {
			log.Printf("APIdispatcher: listening on %s\n", addr)
			srv := &http.Server{Addr: addr, Handler: router}
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Printf("APIdispatcher: %v\n", err)
			}
		}()
	}
}

// PingResponse mirrors tdns/api_utils.go's PingResponse shape, trimmed
// to the fields ixfrd actually has a use for.
type PingResponse struct {
	Time    time.Time
	Daemon  string
	Version string
	Msg     string
}

// APIping answers a liveness probe, grounded on tdns/api_utils.go's
// APIping.
func APIping(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("APIping: received ping request from %s\n", r.RemoteAddr)
		resp := PingResponse{
			Time:    time.Now(),
			Daemon:  conf.App.Name,
			Version: conf.App.Version,
			Msg:     fmt.Sprintf("pong from %s", conf.App.Name),
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// MetricsResponse is the JSON body of the /metrics endpoint.
type MetricsResponse struct {
	Time    time.Time
	Metrics ixfr.MetricsSnapshot
}

// APImetrics exposes the package-level operational counters, grounded
// on the same plain-struct-over-HTTP pattern tdns/apihandler_zone.go
// uses for zone status, applied here to ixfr.DefaultMetrics.Snapshot()
// instead of zone/DNSSEC state.
func APImetrics() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := MetricsResponse{
			Time:    time.Now(),
			Metrics: ixfr.DefaultMetrics.Snapshot(),
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// ZoneStatus is one entry of the /zone/list response.
type ZoneStatus struct {
	Name        string
	Serial      uint32
	IxfrStorage string
}

// ZoneListResponse is the JSON body of the /zone/list endpoint.
type ZoneListResponse struct {
	Time  time.Time
	Zones []ZoneStatus
}

// APIzoneList reports every registered zone's current serial and IXFR
// storage setting, grounded on tdns/apihandler_zone.go's pattern of
// walking Zones and returning one status struct per entry. Zone names
// are sorted for a stable response across repeated polls, the same
// role twotwotwo/sorts plays for RR ordering in internal/memzone.
func APIzoneList(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	registry := conf.Internal.Registry
	return func(w http.ResponseWriter, r *http.Request) {
		names := registry.Names()
		sortStrings(names)

		resp := ZoneListResponse{Time: time.Now()}
		for _, name := range names {
			zone, ok := registry.FindZone(name)
			if !ok {
				continue
			}
			zc := conf.Zones[name]
			resp.Zones = append(resp.Zones, ZoneStatus{
				Name:        name,
				Serial:      zone.CurrentSerial(),
				IxfrStorage: zoneStoreLabel(zc),
			})
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// ReloadPost is the body of a /zone/reload request.
type ReloadPost struct {
	Zone string
}

// ReloadResponse reports the outcome of a reload request.
type ReloadResponse struct {
	Time    time.Time
	Zone    string
	Error   bool
	ErrorMsg string
}

// APIzoneReload re-reads a zone's configured zone file and registers
// the result, following tdns/apihandler_funcs.go's APIconfig
// decode-command-switch-respond shape.
func APIzoneReload(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	registry := conf.Internal.Registry
	return func(w http.ResponseWriter, r *http.Request) {
		var rp ReloadPost
		if err := json.NewDecoder(r.Body).Decode(&rp); err != nil {
			log.Println("APIzoneReload: error decoding reload post:", err)
		}

		resp := ReloadResponse{Time: time.Now(), Zone: rp.Zone}
		zc, ok := conf.Zones[rp.Zone]
		if !ok {
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("zone %q is not configured", rp.Zone)
			json.NewEncoder(w).Encode(resp)
			return
		}

		z, err := loadZone(rp.Zone, zc)
		if err != nil {
			resp.Error = true
			resp.ErrorMsg = err.Error()
			json.NewEncoder(w).Encode(resp)
			return
		}
		registry.Register(z)
		log.Printf("APIzoneReload: zone %s reloaded, serial now %d\n", rp.Zone, z.CurrentSerial())
		json.NewEncoder(w).Encode(resp)
	}
}

// SegmentInfo is one entry of a /zone/{name}/chain response, grounded
// on spec.md's admin introspection extension: each stored segment's
// from/to serial, byte size (the sum of its four byte runs, without
// the per-segment header overhead the chain budget also counts), and
// on-disk position.
type SegmentInfo struct {
	OldSerial uint32
	NewSerial uint32
	Bytes     int
	FileIndex int
}

// ChainResponse is the JSON body of the /zone/{name}/chain endpoint.
type ChainResponse struct {
	Time     time.Time
	Zone     string
	Current  uint32
	Segments []SegmentInfo
}

// APIzoneChain lists every segment currently held for a zone, oldest
// first, grounded on tdns/apihandler_zone.go's read-only zone status
// endpoints and used by `ixfrctl chain show`.
func APIzoneChain(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	registry := conf.Internal.Registry
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		zone, ok := registry.FindZone(name)
		if !ok {
			http.Error(w, fmt.Sprintf("zone %q not found", name), http.StatusNotFound)
			return
		}

		resp := ChainResponse{Time: time.Now(), Zone: name, Current: zone.CurrentSerial()}
		for _, seg := range zone.Chain().All() {
			resp.Segments = append(resp.Segments, SegmentInfo{
				OldSerial: seg.OldSerial,
				NewSerial: seg.NewSerial,
				Bytes:     len(seg.OldSOA) + len(seg.NewSOA) + len(seg.Deleted) + len(seg.Added),
				FileIndex: seg.FileIndex,
			})
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// PersistPost is the body of a /zone/{name}/persist request.
type PersistPost struct {
	Action string // "write" or "read"
}

// PersistResponse reports the outcome of a manual persist trigger.
type PersistResponse struct {
	Time     time.Time
	Zone     string
	Action   string
	Error    bool
	ErrorMsg string
}

// APIzonePersist manually triggers a write-to-disk or read-from-disk
// of a zone's stored segments, the "persist now" operational trigger
// spec.md's admin introspection extension calls for, backing
// `ixfrctl persist write` and `ixfrctl persist read`.
func APIzonePersist(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	registry := conf.Internal.Registry
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		var pp PersistPost
		if err := json.NewDecoder(r.Body).Decode(&pp); err != nil {
			log.Println("APIzonePersist: error decoding persist post:", err)
		}

		resp := PersistResponse{Time: time.Now(), Zone: name, Action: pp.Action}

		zone, ok := registry.FindZone(name)
		if !ok {
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("zone %q not found", name)
			json.NewEncoder(w).Encode(resp)
			return
		}
		zc, ok := conf.Zones[name]
		if !ok {
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("zone %q is not configured", name)
			json.NewEncoder(w).Encode(resp)
			return
		}

		var err error
		switch pp.Action {
		case "write":
			err = ixfr.WriteToFile(zone, zc.Zonefile)
		case "read":
			err = ixfr.ReadFromFile(zone, zc.Zonefile)
		default:
			err = fmt.Errorf("unknown persist action %q", pp.Action)
		}
		if err != nil {
			resp.Error = true
			resp.ErrorMsg = err.Error()
		}
		log.Printf("APIzonePersist: zone %s action %s error=%v\n", name, pp.Action, resp.Error)
		json.NewEncoder(w).Encode(resp)
	}
}

// sortStrings sorts names in place; a tiny local helper so api.go does
// not need to import sort solely for one call site.
func sortStrings(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}

// SetupAPIRouter wires the admin HTTP API, grounded on
// tdns/apirouters.go's SetupAPIRouter: an API-key-gated subrouter
// under /api/v1 with one handler per endpoint.
func SetupAPIRouter(conf *Config) (*mux.Router, error) {
	r := mux.NewRouter().StrictSlash(true)
	apikey := conf.Apiserver.ApiKey
	if apikey == "" {
		return nil, fmt.Errorf("apiserver.apikey is not set")
	}

	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", apikey).Subrouter()
	sr.HandleFunc("/ping", APIping(conf)).Methods("POST")
	sr.HandleFunc("/metrics", APImetrics()).Methods("GET")
	sr.HandleFunc("/zone/list", APIzoneList(conf)).Methods("GET")
	sr.HandleFunc("/zone/reload", APIzoneReload(conf)).Methods("POST")
	sr.HandleFunc("/zone/{name}/chain", APIzoneChain(conf)).Methods("GET")
	sr.HandleFunc("/zone/{name}/persist", APIzonePersist(conf)).Methods("POST")

	return r, nil
}
