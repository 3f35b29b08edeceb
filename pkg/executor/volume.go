package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"howett.net/plist"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// RootVolume mounts the running system's root volume for patching. From Big
// Sur the root is a sealed snapshot and its backing volume is mounted
// separately; Catalina only needs a read-write remount; older systems are
// patched in place.
type RootVolume struct {
	// Kernel major of the running system
	OS         int
	MountPoint string

	run commandRunner
}

func NewRootVolume(osMajor int) *RootVolume {
	return &RootVolume{OS: osMajor, MountPoint: constants.UpdateMountPoint, run: runCommand}
}

type diskInfo struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	APFSSnapshot     bool   `plist:"APFSSnapshot"`
}

// rootDevice returns the volume backing "/", without the snapshot suffix.
func (v *RootVolume) rootDevice(ctx context.Context) (string, error) {
	output, err := v.run(ctx, "/usr/sbin/diskutil", "info", "-plist", "/")
	if err != nil {
		return "", err
	}
	var info diskInfo
	if err := plist.NewDecoder(bytes.NewReader(output)).Decode(&info); err != nil {
		return "", errors.Wrap(err, "parsing diskutil output")
	}
	if info.DeviceIdentifier == "" {
		return "", errors.New("diskutil reported no device identifier for /")
	}
	device := info.DeviceIdentifier
	if info.APFSSnapshot && len(device) > 2 {
		// disk1s1s1 -> disk1s1
		device = device[:len(device)-2]
	}
	return device, nil
}

func (v *RootVolume) Mount(ctx context.Context) (MountHandle, error) {
	switch {
	case v.OS < constants.Catalina:
		return MountHandle{Root: "/", DataRoot: "/"}, nil
	case v.OS == constants.Catalina:
		if _, err := v.run(ctx, "/sbin/mount", "-uw", "/"); err != nil {
			return MountHandle{}, err
		}
		return MountHandle{Root: "/", DataRoot: "/"}, nil
	}

	handle := MountHandle{Root: v.MountPoint, DataRoot: "/"}
	if _, err := os.Stat(filepath.Join(v.MountPoint, "System/Library/CoreServices/SystemVersion.plist")); err == nil {
		logrus.Debugf("%s is already mounted", v.MountPoint)
		return handle, nil
	}
	device, err := v.rootDevice(ctx)
	if err != nil {
		return MountHandle{}, err
	}
	if _, err := v.run(ctx, "/sbin/mount", "-o", "nobrowse", "-t", "apfs", "/dev/"+device, v.MountPoint); err != nil {
		return MountHandle{}, err
	}
	return handle, nil
}

func (v *RootVolume) Unmount(ctx context.Context, handle MountHandle) error {
	switch {
	case v.OS < constants.Catalina:
		return nil
	case v.OS == constants.Catalina:
		_, err := v.run(ctx, "/sbin/umount", "-uw", handle.Root)
		return err
	}
	_, err := v.run(ctx, "/sbin/umount", handle.Root)
	return err
}

// KernelCache rebuilds the kernel collections with kmutil, or the prelinked
// kernel with kextcache before Big Sur.
type KernelCache struct {
	OS int

	run commandRunner
}

func NewKernelCache(osMajor int) *KernelCache {
	return &KernelCache{OS: osMajor, run: runCommand}
}

func (k *KernelCache) Rebuild(ctx context.Context, scope types.CacheScope, handle MountHandle) error {
	if k.OS < constants.BigSur {
		output, err := k.run(ctx, "/usr/sbin/kextcache", "-invalidate", strings.TrimSuffix(handle.Root, "/")+"/")
		if err != nil {
			return err
		}
		// kextcache exits 0 on failure
		if !bytes.Contains(output, []byte("KernelCache ID")) {
			return errors.Errorf("kextcache did not report a new kernel cache: %s", bytes.TrimSpace(output))
		}
		return nil
	}
	_, err := k.run(ctx, "/usr/bin/kmutil", k.kmutilArgs(scope, handle)...)
	return err
}

func (k *KernelCache) kmutilArgs(scope types.CacheScope, handle MountHandle) []string {
	if scope == types.CacheScopeAux {
		collections := filepath.Join(handle.Root, "System/Library/KernelCollections")
		return []string{
			"create", "--allow-missing-kdk",
			"--new", "aux",
			"--boot-path", filepath.Join(collections, "BootKernelExtensions.kc"),
			"--system-path", filepath.Join(collections, "SystemKernelExtensions.kc"),
		}
	}

	var args []string
	if k.OS >= constants.Ventura {
		args = append(args, "create", "--allow-missing-kdk")
	} else {
		args = append(args, "install")
	}
	return append(args, "--volume-root", handle.Root, "--update-all", "--variant-suffix", "release")
}

// BlessSnapshot seals the patched volume as the new boot snapshot.
type BlessSnapshot struct {
	OS int

	run commandRunner
}

func NewBlessSnapshot(osMajor int) *BlessSnapshot {
	return &BlessSnapshot{OS: osMajor, run: runCommand}
}

func (b *BlessSnapshot) Snapshot(ctx context.Context, handle MountHandle) error {
	if b.OS < constants.BigSur {
		return nil
	}
	_, err := b.run(ctx, "/usr/sbin/bless",
		"--folder", filepath.Join(handle.Root, "System/Library/CoreServices"),
		"--bootefi", "--create-snapshot")
	return err
}
