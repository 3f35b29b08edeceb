package executor

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type fakeVolume struct {
	mountErr   error
	unmountErr error
	mounted    int
	unmounted  int
}

func (v *fakeVolume) Mount(context.Context) (MountHandle, error) {
	if v.mountErr != nil {
		return MountHandle{}, v.mountErr
	}
	v.mounted++
	return MountHandle{Root: "/mnt", DataRoot: "/"}, nil
}

func (v *fakeVolume) Unmount(context.Context, MountHandle) error {
	v.unmounted++
	return v.unmountErr
}

type fakeRebuilder struct {
	err    error
	scopes []types.CacheScope
}

func (r *fakeRebuilder) Rebuild(_ context.Context, scope types.CacheScope, _ MountHandle) error {
	r.scopes = append(r.scopes, scope)
	return r.err
}

type fakeSnapshotter struct {
	err   error
	taken int
}

func (s *fakeSnapshotter) Snapshot(context.Context, MountHandle) error {
	s.taken++
	return s.err
}

// fakeFiles fails every action whose target is listed in failing.
type fakeFiles struct {
	failing map[string]bool
	applied []string
}

func (f *fakeFiles) Install(_ MountHandle, a types.InstallFile) error {
	if f.failing[a.Destination] {
		return errors.New("copy failed")
	}
	f.applied = append(f.applied, a.Destination)
	return nil
}

func (f *fakeFiles) Remove(_ MountHandle, a types.RemoveFile) error {
	if f.failing[a.Path] {
		return errors.New("remove failed")
	}
	f.applied = append(f.applied, a.Path)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const (
	teslaKext   = "/System/Library/Extensions/GeForceTesla.kext"
	coreDisplay = "/System/Library/Frameworks/CoreDisplay.framework"
	dropboxHack = "/Library/Application Support/SkyLightPlugins/DropboxHack.dylib"
	legacyKext  = "/System/Library/Extensions/AppleIntelHDGraphics.kext"
)

func volumePlan(actions ...types.PatchAction) *types.PatchPlan {
	return &types.PatchPlan{TargetModel: "iMac9,1", VolumeActions: actions}
}

var _ = ginkgo.Describe("Executor", func() {
	var (
		volume      *fakeVolume
		rebuilder   *fakeRebuilder
		snapshotter *fakeSnapshotter
		files       *fakeFiles
		lockPath    string
		exec        *Executor
	)

	ginkgo.BeforeEach(func() {
		volume = &fakeVolume{}
		rebuilder = &fakeRebuilder{}
		snapshotter = &fakeSnapshotter{}
		files = &fakeFiles{failing: map[string]bool{}}
		lockPath = filepath.Join(ginkgo.GinkgoT().TempDir(), "patcher.lock")
		exec = New(volume, rebuilder, snapshotter,
			WithFileApplier(files),
			WithLockPath(lockPath),
			WithLogger(quietLogger()))
	})

	fullPlan := func() *types.PatchPlan {
		return volumePlan(
			types.NewRemoveFile("legacy-gpu", legacyKext),
			types.NewInstallFile("legacy-gpu", "/payloads/GeForceTesla.kext", teslaKext, types.MergeOverwrite),
			types.NewInstallFile("legacy-gpu", "/payloads/CoreDisplay.framework", coreDisplay, types.MergeUnion),
			types.NewInstallFile("legacy-gpu", "/payloads/DropboxHack.dylib", dropboxHack, types.MergeOnDataVolume),
			types.NewRequireCacheRebuild("legacy-gpu", types.CacheScopeFull),
		)
	}

	ginkgo.Context("with an empty plan", func() {
		ginkgo.It("does not touch the volume", func() {
			report, err := exec.Apply(context.Background(), volumePlan())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Applied).To(BeZero())
			Expect(volume.mounted).To(BeZero())
			Expect(snapshotter.taken).To(BeZero())
		})
	})

	ginkgo.Context("when every action succeeds", func() {
		ginkgo.It("applies in order, rebuilds, snapshots and unmounts", func() {
			report, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).NotTo(HaveOccurred())
			Expect(files.applied).To(Equal([]string{legacyKext, teslaKext, coreDisplay, dropboxHack}))
			Expect(report.Applied).To(Equal(4))
			Expect(report.Rebuilt).To(BeTrue())
			Expect(report.RebuildScope).To(Equal(types.CacheScopeFull))
			Expect(rebuilder.scopes).To(Equal([]types.CacheScope{types.CacheScopeFull}))
			Expect(report.Snapshotted).To(BeTrue())
			Expect(volume.unmounted).To(Equal(1))
		})

		ginkgo.It("skips the rebuild when no action asked for one", func() {
			report, err := exec.Apply(context.Background(), volumePlan(
				types.NewInstallFile("legacy-gpu", "/payloads/CoreDisplay.framework", coreDisplay, types.MergeUnion),
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Rebuilt).To(BeFalse())
			Expect(rebuilder.scopes).To(BeEmpty())
			Expect(report.Snapshotted).To(BeTrue())
		})

		ginkgo.It("rebuilds once with the widest requested scope", func() {
			_, err := exec.Apply(context.Background(), volumePlan(
				types.NewRequireCacheRebuild("a", types.CacheScopeAux),
				types.NewRequireCacheRebuild("b", types.CacheScopeFull),
				types.NewRequireCacheRebuild("c", types.CacheScopeAux),
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(rebuilder.scopes).To(Equal([]types.CacheScope{types.CacheScopeFull}))
		})

		ginkgo.It("logs but ignores a failed unmount", func() {
			volume.unmountErr = errors.New("busy")
			_, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).NotTo(HaveOccurred())
			Expect(volume.unmounted).To(Equal(1))
		})
	})

	ginkgo.Context("when the volume cannot be mounted", func() {
		ginkgo.It("applies nothing", func() {
			volume.mountErr = errors.New("resource busy")
			report, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).To(MatchError(ErrMountFailed))
			Expect(report).To(BeNil())
			Expect(files.applied).To(BeEmpty())
			Expect(volume.unmounted).To(BeZero())
		})
	})

	ginkgo.Context("when a driver install fails", func() {
		ginkgo.It("continues, then withholds the rebuild and the snapshot", func() {
			files.failing[teslaKext] = true
			report, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).To(MatchError(ErrPartialActionFailure))

			var partial *PartialFailureError
			Expect(errors.As(err, &partial)).To(BeTrue())
			Expect(partial.Failures).To(HaveLen(1))
			Expect(partial.Failures[0].Index).To(Equal(1))
			Expect(partial.Failures[0].Target).To(Equal(teslaKext))

			Expect(files.applied).To(Equal([]string{legacyKext, coreDisplay, dropboxHack}))
			Expect(report.RebuildSkipped).To(BeTrue())
			Expect(rebuilder.scopes).To(BeEmpty())
			Expect(snapshotter.taken).To(BeZero())
			Expect(volume.unmounted).To(Equal(1))
		})
	})

	ginkgo.Context("when a non-driver action fails", func() {
		ginkgo.It("still rebuilds and snapshots, then reports the failure", func() {
			files.failing[dropboxHack] = true
			report, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).To(MatchError(ErrPartialActionFailure))
			Expect(report.Failures).To(HaveLen(1))
			Expect(report.Failures[0].Index).To(Equal(3))
			Expect(report.Rebuilt).To(BeTrue())
			Expect(report.Snapshotted).To(BeTrue())
		})
	})

	ginkgo.Context("when the kernel cache rebuild fails", func() {
		ginkgo.It("does not snapshot", func() {
			rebuilder.err = errors.New("kmutil exited 71")
			report, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).To(MatchError(ErrCacheRebuildFailed))
			Expect(report.Rebuilt).To(BeFalse())
			Expect(snapshotter.taken).To(BeZero())
			Expect(volume.unmounted).To(Equal(1))
		})
	})

	ginkgo.Context("when the snapshot fails", func() {
		ginkgo.It("reports it after a successful rebuild", func() {
			snapshotter.err = errors.New("bless failed")
			report, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).To(MatchError(ErrSnapshotFailed))
			Expect(report.Rebuilt).To(BeTrue())
			Expect(report.Snapshotted).To(BeFalse())
		})
	})

	ginkgo.Context("when the context is cancelled", func() {
		ginkgo.It("stops before the next action and unmounts", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := exec.Apply(ctx, fullPlan())
			Expect(err).To(MatchError(context.Canceled))
			Expect(files.applied).To(BeEmpty())
			Expect(volume.unmounted).To(Equal(1))
		})
	})

	ginkgo.Context("when another run holds the lock", func() {
		ginkgo.It("fails with ErrLocked without mounting", func() {
			lock, err := AcquireLock(lockPath)
			Expect(err).NotTo(HaveOccurred())
			defer lock.Release()

			_, err = exec.Apply(context.Background(), fullPlan())
			Expect(err).To(MatchError(ErrLocked))
			Expect(volume.mounted).To(BeZero())
		})

		ginkgo.It("can be taken again once released", func() {
			_, err := exec.Apply(context.Background(), fullPlan())
			Expect(err).NotTo(HaveOccurred())
			lock, err := AcquireLock(lockPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(lock.Release()).To(Succeed())
		})
	})

	ginkgo.It("rejects firmware actions in the volume list", func() {
		_, err := exec.Apply(context.Background(), volumePlan(
			types.NewAppendBootArgument("misc", "-v"),
		))
		Expect(err).To(MatchError(ErrPartialActionFailure))
	})
})
