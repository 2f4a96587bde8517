package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ixfrd/ixfrd/internal/memzone"
	"github.com/ixfrd/ixfrd/ixfr"
)

var appVersion = "devel"

// loadZone builds and populates one in-memory zone from its
// configuration, grounded on the per-zone construction step
// tdnsd/main.go's ParseZones performs before handing a zone to
// RefreshEngine.
func loadZone(name string, zc ZoneIxfrConf) (*memzone.Zone, error) {
	z := memzone.New(name, zc.ToIxfrConfig())
	if err := LoadZoneFile(z, zc.Zonefile); err != nil {
		return nil, fmt.Errorf("zone %s: %w", name, err)
	}
	return z, nil
}

// loadZones registers every configured zone, following
// tdnsd/main.go's ParseZones loop (there dispatched onto a refresh
// channel; here loaded synchronously, since ixfrd has no upstream
// primary to pull from at startup — zone content only ever enters via
// the zone file or, in a future primary-mode build, inbound NOTIFY).
func loadZones(conf *Config) error {
	for name, zc := range conf.Zones {
		z, err := loadZone(name, zc)
		if err != nil {
			return err
		}
		conf.Internal.Registry.Register(z)
		log.Printf("loadZones: zone %s loaded, serial %d, %s\n", name, z.CurrentSerial(), zoneStoreLabel(zc))
	}
	return nil
}

// mainloop blocks until a termination signal arrives, following
// tdnsd/main.go's mainloop signal-dispatcher pattern trimmed to the
// signals ixfrd actually reacts to: SIGINT/SIGTERM to shut down,
// SIGHUP to reload every configured zone from its zone file.
func mainloop(conf *Config) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		for {
			select {
			case <-exit:
				log.Println("mainloop: exit signal received, shutting down")
				close(conf.Internal.StopCh)
				wg.Done()
				return
			case <-hup:
				log.Println("mainloop: SIGHUP received, reloading all zones")
				if err := loadZones(conf); err != nil {
					log.Printf("mainloop: reload failed: %v\n", err)
				}
			}
		}
	}()
	wg.Wait()
	log.Println("mainloop: leaving signal dispatcher")
}

func main() {
	cfgFile, verbose := RegisterFlags()

	var conf Config
	conf.Internal.Registry = NewZoneRegistry()
	conf.Internal.StopCh = make(chan struct{})

	if err := ParseConfig(&conf, cfgFile); err != nil {
		log.Fatalf("ixfrd: %v", err)
	}

	if err := ixfr.SetupFileLogging(conf.Log.File); err != nil {
		log.Fatalf("ixfrd: %v", err)
	}
	log.Printf("ixfrd version %s starting, verbose=%v\n", appVersion, verbose)

	if err := loadZones(&conf); err != nil {
		log.Fatalf("ixfrd: %v", err)
	}

	if err := DnsEngine(&conf); err != nil {
		log.Fatalf("ixfrd: %v", err)
	}

	if len(conf.Apiserver.Addresses) > 0 {
		go APIdispatcher(&conf)
	}

	mainloop(&conf)
}
