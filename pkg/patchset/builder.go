package patchset

import (
	"fmt"
	"sort"

	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// builder accumulates actions in rule order. Kext enables and boot
// arguments are recorded once; every other action is kept in full so that
// later rules can override earlier values at apply time.
type builder struct {
	catalog *catalog.Catalog
	rule    string

	firmware []types.PatchAction
	volume   []types.PatchAction

	kexts    map[string]bool
	bootArgs map[string]bool

	// First error raised by a helper; checked after each rule
	err error
}

func newBuilder(c *catalog.Catalog) *builder {
	return &builder{
		catalog:  c,
		kexts:    map[string]bool{},
		bootArgs: map[string]bool{},
	}
}

func (b *builder) add(a types.PatchAction) {
	if a.Placement() == types.PlacementVolume {
		b.volume = append(b.volume, a)
		return
	}
	b.firmware = append(b.firmware, a)
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// enableKext enables bundles in order. A bundle already enabled by any rule
// is skipped.
func (b *builder) enableKext(bundles ...string) {
	for _, bundle := range bundles {
		if b.kexts[bundle] {
			continue
		}
		version, ok := b.catalog.KextVersion(bundle)
		if !ok {
			b.fail(fmt.Errorf("unknown kext %s", bundle))
			return
		}
		b.kexts[bundle] = true
		b.add(types.NewEnableKext(b.rule, bundle, version))
	}
}

func (b *builder) kextEnabled(bundle string) bool {
	return b.kexts[bundle]
}

func (b *builder) bootArg(tokens ...string) {
	for _, token := range tokens {
		if b.bootArgs[token] {
			continue
		}
		b.bootArgs[token] = true
		b.add(types.NewAppendBootArgument(b.rule, token))
	}
}

func (b *builder) property(devicePath, key string, value any) {
	b.add(types.NewSetDeviceProperty(b.rule, devicePath, key, value))
}

// properties sets keys in sorted order.
func (b *builder) properties(devicePath string, values map[string]any) {
	for _, key := range sortedKeys(values) {
		b.property(devicePath, key, values[key])
	}
}

func (b *builder) nvram(guid, key string, value any) {
	b.add(types.NewSetNvramVariable(b.rule, guid, key, value))
}

func (b *builder) patcherNvram(key string, value any) {
	b.nvram(constants.PatcherGuid, key, value)
}

func (b *builder) entry(section string, names ...string) {
	for _, name := range names {
		b.add(types.NewEnableConfigEntry(b.rule, section, name))
	}
}

func (b *builder) value(keyPath string, value any) {
	b.add(types.NewSetConfigValue(b.rule, keyPath, value))
}

func (b *builder) install(source, destination string, policy types.MergePolicy) {
	b.add(types.NewInstallFile(b.rule, source, destination, policy))
}

func (b *builder) remove(path string) {
	b.add(types.NewRemoveFile(b.rule, path))
}

func (b *builder) requireCacheRebuild(scope types.CacheScope) {
	b.add(types.NewRequireCacheRebuild(b.rule, scope))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
