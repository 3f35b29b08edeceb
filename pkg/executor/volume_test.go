package executor

import (
	"context"
	"errors"
	"strings"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// recorder stands in for external tools, replying by command name.
type recorder struct {
	calls   []string
	outputs map[string]string
	errs    map[string]error
}

func newRecorder() *recorder {
	return &recorder{outputs: map[string]string{}, errs: map[string]error{}}
}

func (r *recorder) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	return []byte(r.outputs[name]), r.errs[name]
}

const diskutilSnapshot = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>APFSSnapshot</key>
	<true/>
	<key>DeviceIdentifier</key>
	<string>disk1s5s1</string>
	<key>VolumeName</key>
	<string>Macintosh HD</string>
</dict>
</plist>`

var _ = ginkgo.Describe("RootVolume", func() {
	var rec *recorder

	ginkgo.BeforeEach(func() {
		rec = newRecorder()
		rec.outputs["/usr/sbin/diskutil"] = diskutilSnapshot
	})

	volume := func(osMajor int) *RootVolume {
		return &RootVolume{OS: osMajor, MountPoint: ginkgo.GinkgoT().TempDir(), run: rec.run}
	}

	ginkgo.It("patches High Sierra in place", func() {
		handle, err := volume(constants.HighSierra).Mount(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(handle.Root).To(Equal("/"))
		Expect(rec.calls).To(BeEmpty())
	})

	ginkgo.It("remounts the Catalina root read-write", func() {
		v := volume(constants.Catalina)
		handle, err := v.Mount(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Unmount(context.Background(), handle)).To(Succeed())
		Expect(rec.calls).To(Equal([]string{"/sbin/mount -uw /", "/sbin/umount -uw /"}))
	})

	ginkgo.It("mounts the volume backing the Ventura snapshot", func() {
		v := volume(constants.Ventura)
		handle, err := v.Mount(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(handle.Root).To(Equal(v.MountPoint))
		Expect(handle.DataRoot).To(Equal("/"))
		Expect(rec.calls).To(ConsistOf(
			"/usr/sbin/diskutil info -plist /",
			"/sbin/mount -o nobrowse -t apfs /dev/disk1s5 "+v.MountPoint,
		))
	})

	ginkgo.It("fails when mount fails", func() {
		rec.errs["/sbin/mount"] = errors.New("mount_apfs: Resource busy")
		_, err := volume(constants.Monterey).Mount(context.Background())
		Expect(err).To(HaveOccurred())
	})
})

var _ = ginkgo.Describe("KernelCache", func() {
	var rec *recorder

	ginkgo.BeforeEach(func() {
		rec = newRecorder()
	})

	handle := MountHandle{Root: "/System/Volumes/Update/mnt1", DataRoot: "/"}

	ginkgo.It("uses kmutil create on Ventura", func() {
		k := &KernelCache{OS: constants.Ventura, run: rec.run}
		Expect(k.Rebuild(context.Background(), types.CacheScopeFull, handle)).To(Succeed())
		Expect(rec.calls).To(Equal([]string{
			"/usr/bin/kmutil create --allow-missing-kdk --volume-root /System/Volumes/Update/mnt1 --update-all --variant-suffix release",
		}))
	})

	ginkgo.It("uses kmutil install on Big Sur and Monterey", func() {
		k := &KernelCache{OS: constants.Monterey}
		Expect(k.kmutilArgs(types.CacheScopeFull, handle)[0]).To(Equal("install"))
	})

	ginkgo.It("builds only the auxiliary collection for the aux scope", func() {
		k := &KernelCache{OS: constants.Monterey}
		args := k.kmutilArgs(types.CacheScopeAux, handle)
		Expect(args).To(ContainElements("--new", "aux"))
		Expect(args).To(ContainElement("/System/Volumes/Update/mnt1/System/Library/KernelCollections/BootKernelExtensions.kc"))
	})

	ginkgo.It("checks kextcache output before Big Sur", func() {
		k := &KernelCache{OS: constants.Catalina, run: rec.run}
		rec.outputs["/usr/sbin/kextcache"] = "kextcache: error reading extensions"
		Expect(k.Rebuild(context.Background(), types.CacheScopeFull, MountHandle{Root: "/"})).NotTo(Succeed())

		rec.outputs["/usr/sbin/kextcache"] = "KernelCache ID: 4B2C9F1A"
		Expect(k.Rebuild(context.Background(), types.CacheScopeFull, MountHandle{Root: "/"})).To(Succeed())
		Expect(rec.calls[0]).To(Equal("/usr/sbin/kextcache -invalidate /"))
	})
})

var _ = ginkgo.Describe("BlessSnapshot", func() {
	ginkgo.It("creates a snapshot from Big Sur on", func() {
		rec := newRecorder()
		Expect((&BlessSnapshot{OS: constants.Catalina, run: rec.run}).Snapshot(context.Background(), MountHandle{Root: "/"})).To(Succeed())
		Expect(rec.calls).To(BeEmpty())

		Expect((&BlessSnapshot{OS: constants.BigSur, run: rec.run}).Snapshot(context.Background(), MountHandle{Root: "/mnt"})).To(Succeed())
		Expect(rec.calls).To(Equal([]string{"/usr/sbin/bless --folder /mnt/System/Library/CoreServices --bootefi --create-snapshot"}))
	})
})
