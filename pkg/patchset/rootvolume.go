package patchset

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

func rootPatchEnabled(ctx *Context) bool {
	return ctx.Config.RootPatch
}

// rootVolumeActions stages the system volume patch sets whose hardware is
// present and no longer supported by the target OS. Shared sets are staged
// once even when several hardware sets include them.
func rootVolumeActions(ctx *Context, b *builder) error {
	staged := map[string]bool{}
	for _, set := range ctx.catalog.PatchSets.Hardware {
		if !hardwareSetApplies(ctx, set) {
			continue
		}
		stagePatchSet(ctx, b, set)

		for _, name := range set.Include {
			if staged[name] {
				continue
			}
			shared, ok := ctx.catalog.SharedPatchSet(name)
			if !ok {
				return fmt.Errorf("patch set %s includes unknown set %s", set.Name, name)
			}
			if !catalog.InRange(ctx.TargetOS, shared.OSMin, shared.OSMax) {
				continue
			}
			staged[name] = true
			stagePatchSet(ctx, b, shared)
		}
	}

	scope := types.CacheScopeNone
	for _, a := range b.volume {
		scope = scope.Wider(a.CacheScope())
	}
	if scope != types.CacheScopeNone {
		b.requireCacheRebuild(scope)
	}
	return nil
}

func hardwareSetApplies(ctx *Context, set catalog.PatchSet) bool {
	if set.NativeUntil != nil && ctx.TargetOS <= *set.NativeUntil {
		return false
	}
	// GPU triggers need probed hardware
	if ctx.Live && ctx.Snapshot.HasGpuArchitecture(set.GpuArchitectures...) {
		return true
	}
	wireless := ctx.Wireless()
	for _, chipset := range set.WirelessChipsets {
		if chipset == wireless {
			return true
		}
	}
	for _, name := range set.ModelSets {
		if ctx.InSet(name) {
			return true
		}
	}
	return false
}

func stagePatchSet(ctx *Context, b *builder, set catalog.PatchSet) {
	for _, group := range set.Install {
		if !catalog.InRange(ctx.TargetOS, group.OSMin, group.OSMax) {
			continue
		}
		for _, file := range sortedKeys(group.Files) {
			version := catalog.SourceVersion(group.Files[file], ctx.TargetOS)
			source := path.Join(constants.PayloadsDir, version, strings.TrimPrefix(group.Destination, "/"), file)
			b.install(source, path.Join(group.Destination, file), group.Policy)
		}
	}
	for _, group := range set.Remove {
		files := append([]string(nil), group.Files...)
		sort.Strings(files)
		for _, file := range files {
			b.remove(path.Join(group.Destination, file))
		}
	}
}
