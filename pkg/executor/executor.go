package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

var (
	ErrMountFailed          = errors.New("system volume mount failed")
	ErrCacheRebuildFailed   = errors.New("kernel cache rebuild failed")
	ErrSnapshotFailed       = errors.New("snapshot creation failed")
	ErrPartialActionFailure = errors.New("some volume actions failed")
	ErrLocked               = errors.New("another patch run is in progress")
)

// MountHandle locates a writable system volume.
type MountHandle struct {
	// Root of the system volume; file actions are applied below it
	Root string
	// Root of the data volume, used by merge-on-data-volume installs
	DataRoot string
}

type VolumeMounter interface {
	Mount(ctx context.Context) (MountHandle, error)
	Unmount(ctx context.Context, handle MountHandle) error
}

type CacheRebuilder interface {
	Rebuild(ctx context.Context, scope types.CacheScope, handle MountHandle) error
}

type Snapshotter interface {
	Snapshot(ctx context.Context, handle MountHandle) error
}

// FileApplier performs single file actions against a mounted volume.
type FileApplier interface {
	Install(handle MountHandle, f types.InstallFile) error
	Remove(handle MountHandle, f types.RemoveFile) error
}

// ActionError describes one volume action that could not be applied.
type ActionError struct {
	Index  int
	Action types.PatchAction
	Target string
	Err    error
}

func (e ActionError) Error() string {
	return fmt.Sprintf("action %d (%s %s): %v", e.Index, e.Action.Kind, e.Target, e.Err)
}

func (e ActionError) Unwrap() error {
	return e.Err
}

// PartialFailureError lists every failed action of a run. It matches
// ErrPartialActionFailure with errors.Is.
type PartialFailureError struct {
	Failures []ActionError
}

func (e *PartialFailureError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%v: %s", ErrPartialActionFailure, strings.Join(msgs, "; "))
}

func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialActionFailure
}

// Report is the outcome of one Apply call.
type Report struct {
	Applied  int
	Failures []ActionError

	RebuildScope types.CacheScope
	Rebuilt      bool
	// Set when a rebuild was requested but withheld after a driver install failed
	RebuildSkipped bool
	Snapshotted    bool
}

type Executor struct {
	mounter     VolumeMounter
	rebuilder   CacheRebuilder
	snapshotter Snapshotter
	files       FileApplier
	lockPath    string
	log         *logrus.Entry
}

type Option func(*Executor)

func WithLockPath(path string) Option {
	return func(e *Executor) {
		e.lockPath = path
	}
}

func WithFileApplier(files FileApplier) Option {
	return func(e *Executor) {
		e.files = files
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(e *Executor) {
		e.log = logrus.NewEntry(logger)
	}
}

func New(mounter VolumeMounter, rebuilder CacheRebuilder, snapshotter Snapshotter, opts ...Option) *Executor {
	e := &Executor{
		mounter:     mounter,
		rebuilder:   rebuilder,
		snapshotter: snapshotter,
		files:       LocalFiles{},
		lockPath:    constants.LockFilePath,
		log:         logrus.WithField("component", "executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs the volume actions of plan: lock, mount, apply in order,
// rebuild the kernel cache, snapshot, unmount. The volume is unmounted on
// every path once mounted. Nothing is retried.
//
// A failed action does not stop the remaining ones. The kernel cache is not
// rebuilt, and no snapshot is taken, when a driver install failed.
func (e *Executor) Apply(ctx context.Context, plan *types.PatchPlan) (*Report, error) {
	report := &Report{}
	if plan == nil || len(plan.VolumeActions) == 0 {
		return report, nil
	}

	lock, err := AcquireLock(e.lockPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			e.log.Warnf("Failed to release %s: %v", e.lockPath, err)
		}
	}()

	handle, err := e.mounter.Mount(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrMountFailed, "%v", err)
	}
	e.log.WithField("root", handle.Root).Info("Mounted system volume")
	defer func() {
		// A failed unmount leaves the volume mounted until reboot, which is harmless
		if err := e.mounter.Unmount(context.WithoutCancel(ctx), handle); err != nil {
			e.log.Warnf("Failed to unmount %s: %v", handle.Root, err)
		}
	}()

	driverFailed := false
	for i, action := range plan.VolumeActions {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrapf(err, "stopped before action %d", i)
		}
		if action.RequireCacheRebuild != nil {
			report.RebuildScope = report.RebuildScope.Wider(action.RequireCacheRebuild.Scope)
			continue
		}

		if err := e.applyAction(handle, action); err != nil {
			e.log.WithField("target", action.Target()).Errorf("%s failed: %v", action.Kind, err)
			report.Failures = append(report.Failures, ActionError{
				Index:  i,
				Action: action,
				Target: action.Target(),
				Err:    err,
			})
			if action.IsDriverInstall() {
				driverFailed = true
			}
			continue
		}
		e.log.Debugf("Applied %s", action)
		report.Applied++
	}

	if driverFailed {
		if report.RebuildScope != types.CacheScopeNone {
			report.RebuildSkipped = true
			e.log.Warn("Skipping kernel cache rebuild, a driver install failed")
		}
		return report, &PartialFailureError{Failures: report.Failures}
	}

	if report.RebuildScope != types.CacheScopeNone {
		e.log.Infof("Rebuilding kernel cache (%s)", report.RebuildScope)
		if err := e.rebuilder.Rebuild(ctx, report.RebuildScope, handle); err != nil {
			return report, errors.Wrapf(ErrCacheRebuildFailed, "%v", err)
		}
		report.Rebuilt = true
	}

	if err := e.snapshotter.Snapshot(ctx, handle); err != nil {
		return report, errors.Wrapf(ErrSnapshotFailed, "%v", err)
	}
	report.Snapshotted = true

	if len(report.Failures) > 0 {
		return report, &PartialFailureError{Failures: report.Failures}
	}
	return report, nil
}

func (e *Executor) applyAction(handle MountHandle, action types.PatchAction) error {
	switch {
	case action.InstallFile != nil:
		return e.files.Install(handle, *action.InstallFile)
	case action.RemoveFile != nil:
		return e.files.Remove(handle, *action.RemoveFile)
	}
	return errors.Errorf("%s is not a volume action", action.Kind)
}
