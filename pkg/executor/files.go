package executor

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
	"github.com/jpnorenam/legacy-patcher/pkg/utils"
)

// LocalFiles applies file actions through the local filesystem. Installed
// files are made 0755 and, when running as root, owned by root:wheel.
type LocalFiles struct{}

func (LocalFiles) Install(handle MountHandle, f types.InstallFile) error {
	root := handle.Root
	if f.MergePolicy == types.MergeOnDataVolume {
		root = handle.DataRoot
	}
	dest := filepath.Join(root, f.Destination)

	if _, err := os.Lstat(f.Source); err != nil {
		return errors.Wrap(err, "payload missing")
	}

	switch f.MergePolicy {
	case types.MergeOverwrite:
		if _, err := os.Stat(filepath.Dir(dest)); err != nil {
			return errors.Wrap(err, "destination directory")
		}
		if err := os.RemoveAll(dest); err != nil {
			return errors.Wrapf(err, "removing existing %s", dest)
		}
	case types.MergeUnion, types.MergeOnDataVolume:
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown merge policy %q", f.MergePolicy)
	}

	if err := copyTree(f.Source, dest); err != nil {
		return err
	}
	return fixPermissions(dest)
}

func (LocalFiles) Remove(handle MountHandle, f types.RemoveFile) error {
	target := filepath.Join(handle.Root, f.Path)
	if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return os.RemoveAll(target)
}

// copyTree copies src onto dst, keeping files already at dst that src does
// not contain. Symlinks are copied as links.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			if err := os.RemoveAll(target); err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(p, target)
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Replace rather than truncate, the existing file may be a link
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s", src)
	}
	return out.Close()
}

func fixPermissions(root string) error {
	asRoot := utils.IsRootUser()
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			if err := os.Chmod(p, 0755); err != nil {
				return err
			}
		}
		if asRoot {
			// wheel is gid 0 on macOS
			return os.Lchown(p, 0, 0)
		}
		return nil
	})
}
