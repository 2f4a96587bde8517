package main

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ixfrd/ixfrd/ixfr"
)

// DefaultCfgFile is where ixfrd looks for its configuration absent an
// explicit --config flag, mirroring the teacher's DefaultCfgFile
// convention.
const DefaultCfgFile = "/etc/ixfrd/ixfrd.yaml"

// Config is the top-level ixfrd configuration, unmarshalled from YAML
// by viper. It mirrors tdns.Config's App/Service/DnsEngine/Apiserver
// section split.
type Config struct {
	App       AppDetails
	Service   ServiceConf
	DnsEngine DnsEngineConf
	Apiserver ApiserverConf
	Log       struct {
		File string `validate:"required"`
	}
	Zones map[string]ZoneIxfrConf

	Internal InternalConf `mapstructure:"-"`
}

type AppDetails struct {
	Name    string
	Version string
}

type ServiceConf struct {
	Name  string `validate:"required"`
	Debug bool
}

type DnsEngineConf struct {
	Addresses []string `validate:"required"`
}

type ApiserverConf struct {
	Addresses []string
	ApiKey    string
}

// ZoneIxfrConf is the externally loaded, validated counterpart of
// ixfr.Config: operators configure it via YAML, and it is converted
// with ToIxfrConfig when the zone is registered. Mirrors the
// ZoneConf/ZoneData split in johanix-tdns's tdns/structs.go.
type ZoneIxfrConf struct {
	Zonefile  string `validate:"required"`
	Primary   string
	StoreIxfr bool
	IxfrCount uint
	IxfrSize  uint
}

// ToIxfrConfig converts the validated external configuration into the
// budget the ixfr package consumes.
func (z ZoneIxfrConf) ToIxfrConfig() ixfr.Config {
	if !z.StoreIxfr {
		return ixfr.Config{}
	}
	return ixfr.Config{MaxCount: z.IxfrCount, MaxBytes: z.IxfrSize}
}

// InternalConf holds runtime wiring that has no business living in a
// YAML file: channels, registries, stop signals.
type InternalConf struct {
	Registry *ZoneRegistry
	StopCh   chan struct{}
}

// ParseConfig loads and validates ixfrd's configuration from cfgfile
// (or DefaultCfgFile if empty), the way tdnsd/main.go's ParseConfig
// does for the teacher.
func ParseConfig(conf *Config, cfgfile string) error {
	if cfgfile == "" {
		cfgfile = DefaultCfgFile
	}
	viper.SetConfigFile(cfgfile)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("could not load config %s: %w", cfgfile, err)
	}

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	return ValidateConfig(conf, cfgfile)
}

// ValidateConfig runs struct-tag validation over each configuration
// section, the way tdns.ValidateBySection walks Config's sections one
// at a time so a single missing field names its own section in the
// error, not the whole struct.
func ValidateConfig(conf *Config, cfgfile string) error {
	validate := validator.New()

	sections := map[string]interface{}{
		"service":   conf.Service,
		"dnsengine": conf.DnsEngine,
		"log":       conf.Log,
	}
	for name, data := range sections {
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("config %q, section %q: %w", cfgfile, name, err)
		}
	}

	for zname, zc := range conf.Zones {
		if err := validate.Struct(zc); err != nil {
			return fmt.Errorf("config %q, zone %q: %w", cfgfile, zname, err)
		}
	}

	return nil
}

// RegisterFlags wires the small set of command-line overrides ixfrd
// accepts, following server/main.go's pflag convention in the teacher
// (there commented out; here actually used, since ixfrd is a single
// focused binary rather than part of a larger monorepo CLI).
func RegisterFlags() (cfgFile string, verbose bool) {
	pflag.StringVar(&cfgFile, "config", DefaultCfgFile, "config file path")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pflag.Parse()
	return cfgFile, verbose
}

// zoneStoreLabel renders a short human label for a zone's IXFR storage
// setting, used by admin API responses and logging.
func zoneStoreLabel(zc ZoneIxfrConf) string {
	if !zc.StoreIxfr {
		return "disabled"
	}
	parts := []string{fmt.Sprintf("count=%d", zc.IxfrCount)}
	if zc.IxfrSize > 0 {
		parts = append(parts, fmt.Sprintf("bytes=%d", zc.IxfrSize))
	}
	return strings.Join(parts, " ")
}
