package storage

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/canonical/go-snapctl/env"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type Config interface {
	Set(key, value string, confType configType) error
	SetDocument(key string, value any, confType configType) error
	Get(key string) (map[string]any, error)
	GetAll() (map[string]any, error)
	Unset(key string, confType configType) error
}

type config struct {
	storage storage
}

// NewConfig stores settings through snapctl inside a snap and in a YAML
// file at path otherwise.
func NewConfig(path string) Config {
	if env.Snap() != "" {
		return &config{storage: NewSnapctlStorage()}
	}
	return &config{storage: NewFileStorage(path)}
}

func newConfigWithStorage(s storage) Config {
	return &config{storage: s}
}

const configKeyPrefix = "config"

type configType string

// config precedence, from lowest to highest
var confPrecedence = []configType{
	PackageConfig, // defaults shipped with the patcher
	UserConfig,    // values set by the user, overriding all others
}

// config types
const (
	PackageConfig configType = "package"
	UserConfig    configType = "user"
)

// Set sets a configuration value
func (c *config) Set(key, value string, confType configType) error {
	// User configs are overrides, reject unknown keys and bad values
	if confType == UserConfig {
		setting, ok := settingsByKey[key]
		if !ok {
			return fmt.Errorf("unknown key %q", key)
		}
		var probe types.UserConfig
		if err := setting.set(&probe, value); err != nil {
			return fmt.Errorf("invalid value for %s: %v", key, err)
		}
	}

	return c.storage.Set(c.nestKeys(confType, key), value)
}

// SetDocument sets a configuration value that is primitive or an object
func (c *config) SetDocument(key string, value any, confType configType) error {
	return c.storage.SetDocument(c.nestKeys(confType, key), value)
}

// Get returns one or more configuration fields in as a flat map, after applying precedence rules
// If the value is a single primitive value, the map will have one entry with the full key
func (c *config) Get(key string) (map[string]any, error) {
	configs, err := c.loadConfigs()
	if err != nil {
		return nil, err
	}

	// Filter to needed keys
	for k := range configs {
		// Only keep exact key matches for both primitives and objects
		// e.g. debug and debug.verbose-boot
		if k != key && !strings.HasPrefix(k, key+".") {
			delete(configs, k)
		}
	}

	return configs, nil
}

// GetAll returns all configurations as a flattened map
func (c *config) GetAll() (map[string]any, error) {
	return c.loadConfigs()
}

func (c *config) Unset(key string, confType configType) error {
	return c.storage.Unset(c.nestKeys(confType, key))
}

// loadConfigs loads all configurations as a flattened map, after applying precedence rules
func (c *config) loadConfigs() (map[string]any, error) {
	values, err := c.storage.Get(configKeyPrefix)
	if err != nil {
		if errors.Is(err, ErrorNotFound) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	// Load configurations in the order of precedence
	var finalMap = make(map[string]any)
	for _, k := range confPrecedence {
		if v, found := values[string(k)]; found {
			layer, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("config layer %s is not an object", k)
			}
			maps.Copy(finalMap, flattenMap(layer))
		}
	}

	return finalMap, nil
}

// flattenMap creates a single-level map with dot-separated keys
func flattenMap(input map[string]any) map[string]any {
	flatMap := make(map[string]any)

	var recurse func(map[string]any, string)
	recurse = func(m map[string]any, prefix string) {
		for k, v := range m {
			fullKey := k
			if prefix != "" {
				fullKey = prefix + "." + k
			}
			switch val := v.(type) {
			case map[string]any:
				recurse(val, fullKey)
			default:
				flatMap[fullKey] = val
			}
		}
	}
	recurse(input, "")

	return flatMap
}

// nestKeys creates a dot-separated key with the expected prefix
func (c *config) nestKeys(confType configType, key string) string {
	if key == "." { // special case, referencing the parent
		return strings.Join([]string{configKeyPrefix, string(confType)}, ".")
	} else {
		return strings.Join([]string{configKeyPrefix, string(confType), key}, ".")
	}
}

// setting binds a config key to a UserConfig field.
type setting struct {
	key string
	get func(types.UserConfig) any
	set func(*types.UserConfig, string) error
}

func boolSetting(key string, field func(*types.UserConfig) *bool) setting {
	return setting{
		key: key,
		get: func(c types.UserConfig) any { return *field(&c) },
		set: func(c *types.UserConfig, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
	}
}

var settings = []setting{
	{
		key: "build.target-model",
		get: func(c types.UserConfig) any { return c.TargetModel },
		set: func(c *types.UserConfig, v string) error { c.TargetModel = v; return nil },
	},
	{
		key: "build.target-os",
		get: func(c types.UserConfig) any { return c.TargetOS },
		set: func(c *types.UserConfig, v string) error {
			if v == "" || v == "0" {
				c.TargetOS = 0
				return nil
			}
			major, err := constants.ParseOS(v)
			c.TargetOS = major
			return err
		},
	},
	{
		key: "build.serial-strategy",
		get: func(c types.UserConfig) any { return c.SerialStrategy.String() },
		set: func(c *types.UserConfig, v string) error { return c.SerialStrategy.Set(v) },
	},
	boolSetting("debug.verbose-boot", func(c *types.UserConfig) *bool { return &c.VerboseBoot }),
	boolSetting("debug.kext-debug", func(c *types.UserConfig) *bool { return &c.KextDebug }),
	boolSetting("debug.opencore-debug", func(c *types.UserConfig) *bool { return &c.OpenCoreDebug }),
	boolSetting("boot.show-picker", func(c *types.UserConfig) *bool { return &c.ShowPicker }),
	{
		key: "boot.timeout",
		get: func(c types.UserConfig) any { return c.Timeout },
		set: func(c *types.UserConfig, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("timeout must not be negative")
			}
			c.Timeout = n
			return nil
		},
	},
	boolSetting("boot.vault", func(c *types.UserConfig) *bool { return &c.Vault }),
	boolSetting("security.sip-disabled", func(c *types.UserConfig) *bool { return &c.SipDisabled }),
	boolSetting("security.secure-boot-model", func(c *types.UserConfig) *bool { return &c.SecureBootModel }),
	boolSetting("security.root-patch", func(c *types.UserConfig) *bool { return &c.RootPatch }),
	boolSetting("hardware.drm-prioritize", func(c *types.UserConfig) *bool { return &c.DrmPrioritize }),
	boolSetting("hardware.disable-firmware-throttle", func(c *types.UserConfig) *bool { return &c.DisableFirmwareThrottle }),
	boolSetting("hardware.nvme-boot", func(c *types.UserConfig) *bool { return &c.NvmeBoot }),
	boolSetting("hardware.xhci-boot", func(c *types.UserConfig) *bool { return &c.XhciBoot }),
	boolSetting("hardware.firewire-boot", func(c *types.UserConfig) *bool { return &c.FirewireBoot }),
	boolSetting("hardware.disable-thunderbolt", func(c *types.UserConfig) *bool { return &c.DisableThunderbolt }),
	boolSetting("hardware.wake-on-wlan", func(c *types.UserConfig) *bool { return &c.WakeOnWlan }),
	boolSetting("hardware.disable-media-analysis", func(c *types.UserConfig) *bool { return &c.DisableMediaAnalysis }),
}

var settingsByKey = func() map[string]setting {
	m := make(map[string]setting, len(settings))
	for _, s := range settings {
		m[s.key] = s
	}
	return m
}()

// Keys lists every user settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for _, s := range settings {
		keys = append(keys, s.key)
	}
	sort.Strings(keys)
	return keys
}

// DefaultValues returns the built-in value of every key, as flat keys.
func DefaultValues() map[string]any {
	defaults := types.DefaultUserConfig()
	values := make(map[string]any, len(settings))
	for _, s := range settings {
		values[s.key] = s.get(defaults)
	}
	return values
}

// SeedPackageConfig writes the built-in defaults as the package layer.
func SeedPackageConfig(c Config) error {
	defaults := types.DefaultUserConfig()
	doc := map[string]any{}
	for _, s := range settings {
		group, name, _ := strings.Cut(s.key, ".")
		section, ok := doc[group].(map[string]any)
		if !ok {
			section = map[string]any{}
			doc[group] = section
		}
		section[name] = s.get(defaults)
	}
	return c.SetDocument(".", doc, PackageConfig)
}

// LoadUserConfig converts the effective configuration into a UserConfig.
// Keys absent from every layer keep their defaults.
func LoadUserConfig(c Config) (types.UserConfig, error) {
	uc := types.DefaultUserConfig()

	values, err := c.GetAll()
	if err != nil {
		return uc, fmt.Errorf("error loading config: %v", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s, ok := settingsByKey[key]
		if !ok {
			return uc, fmt.Errorf("unknown config key %q", key)
		}
		if err := s.set(&uc, fmt.Sprint(values[key])); err != nil {
			return uc, fmt.Errorf("invalid value for %s: %v", key, err)
		}
	}
	return uc, nil
}
