package executor

import (
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

func writeFile(path, content string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

var _ = ginkgo.Describe("LocalFiles", func() {
	var (
		payloads string
		handle   MountHandle
		files    LocalFiles
	)

	ginkgo.BeforeEach(func() {
		dir := ginkgo.GinkgoT().TempDir()
		payloads = filepath.Join(dir, "payloads")
		handle = MountHandle{Root: filepath.Join(dir, "system"), DataRoot: filepath.Join(dir, "data")}

		writeFile(filepath.Join(payloads, "GeForceTesla.kext/Contents/Info.plist"), "tesla")
		writeFile(filepath.Join(payloads, "GeForceTesla.kext/Contents/MacOS/GeForceTesla"), "binary")
		writeFile(filepath.Join(payloads, "DropboxHack.dylib"), "hack")

		writeFile(filepath.Join(handle.Root, "System/Library/Extensions/GeForceTesla.kext/Contents/Stale"), "old")
		writeFile(filepath.Join(handle.Root, "System/Library/Extensions/GeForceTesla.kext/Contents/Info.plist"), "old")
	})

	ginkgo.It("replaces the destination on overwrite", func() {
		err := files.Install(handle, types.InstallFile{
			Source:      filepath.Join(payloads, "GeForceTesla.kext"),
			Destination: "/System/Library/Extensions/GeForceTesla.kext",
			MergePolicy: types.MergeOverwrite,
		})
		Expect(err).NotTo(HaveOccurred())

		kext := filepath.Join(handle.Root, "System/Library/Extensions/GeForceTesla.kext")
		Expect(readFile(filepath.Join(kext, "Contents/Info.plist"))).To(Equal("tesla"))
		Expect(filepath.Join(kext, "Contents/Stale")).NotTo(BeAnExistingFile())

		info, err := os.Stat(filepath.Join(kext, "Contents/MacOS/GeForceTesla"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0755)))
	})

	ginkgo.It("keeps existing files on merge", func() {
		err := files.Install(handle, types.InstallFile{
			Source:      filepath.Join(payloads, "GeForceTesla.kext"),
			Destination: "/System/Library/Extensions/GeForceTesla.kext",
			MergePolicy: types.MergeUnion,
		})
		Expect(err).NotTo(HaveOccurred())

		kext := filepath.Join(handle.Root, "System/Library/Extensions/GeForceTesla.kext")
		Expect(readFile(filepath.Join(kext, "Contents/Info.plist"))).To(Equal("tesla"))
		Expect(readFile(filepath.Join(kext, "Contents/Stale"))).To(Equal("old"))
	})

	ginkgo.It("creates missing parents on merge", func() {
		err := files.Install(handle, types.InstallFile{
			Source:      filepath.Join(payloads, "DropboxHack.dylib"),
			Destination: "/System/Library/PrivateFrameworks/New.framework/DropboxHack.dylib",
			MergePolicy: types.MergeUnion,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(handle.Root, "System/Library/PrivateFrameworks/New.framework/DropboxHack.dylib")).To(BeAnExistingFile())
	})

	ginkgo.It("writes merge-on-data-volume installs below the data root", func() {
		err := files.Install(handle, types.InstallFile{
			Source:      filepath.Join(payloads, "DropboxHack.dylib"),
			Destination: "/Library/Application Support/SkyLightPlugins/DropboxHack.dylib",
			MergePolicy: types.MergeOnDataVolume,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(readFile(filepath.Join(handle.DataRoot, "Library/Application Support/SkyLightPlugins/DropboxHack.dylib"))).To(Equal("hack"))
		Expect(filepath.Join(handle.Root, "Library/Application Support/SkyLightPlugins/DropboxHack.dylib")).NotTo(BeAnExistingFile())
	})

	ginkgo.It("fails when the payload is missing", func() {
		err := files.Install(handle, types.InstallFile{
			Source:      filepath.Join(payloads, "Missing.kext"),
			Destination: "/System/Library/Extensions/Missing.kext",
			MergePolicy: types.MergeOverwrite,
		})
		Expect(err).To(HaveOccurred())
	})

	ginkgo.It("fails on overwrite when the destination directory does not exist", func() {
		err := files.Install(handle, types.InstallFile{
			Source:      filepath.Join(payloads, "DropboxHack.dylib"),
			Destination: "/System/Library/Nowhere/DropboxHack.dylib",
			MergePolicy: types.MergeOverwrite,
		})
		Expect(err).To(HaveOccurred())
	})

	ginkgo.It("removes files and ignores missing ones", func() {
		Expect(files.Remove(handle, types.RemoveFile{Path: "/System/Library/Extensions/GeForceTesla.kext"})).To(Succeed())
		Expect(filepath.Join(handle.Root, "System/Library/Extensions/GeForceTesla.kext")).NotTo(BeAnExistingFile())
		Expect(files.Remove(handle, types.RemoveFile{Path: "/System/Library/Extensions/GeForceTesla.kext"})).To(Succeed())
	})
})
