package hardware_info

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"howett.net/plist"

	"github.com/jpnorenam/legacy-patcher/pkg/classifier"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/hardware_info/pci"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
	"github.com/jpnorenam/legacy-patcher/pkg/utils"
)

const probeTimeout = 30 * time.Second

var sysctlKeys = []string{
	"hw.model",
	"kern.osrelease",
	"kern.osversion",
	"machdep.cpu.brand_string",
	"machdep.cpu.features",
	"machdep.cpu.leaf7_features",
}

// Missing on CPUs older than Haswell
var optionalSysctlKeys = map[string]bool{
	"machdep.cpu.leaf7_features": true,
}

// RawData is the unparsed output of the tools a probe runs.
type RawData struct {
	// `sysctl <key>` lines
	Sysctl string
	// `nvram -x -p`
	Nvram []byte
	// `ioreg -a -l -p IOService`
	Ioreg []byte
}

// Get probes the running machine. The snapshot is not classified; pass it
// through classifier.Enrich before resolving.
func Get(ctx context.Context) (*types.HardwareSnapshot, error) {
	raw, err := collect(ctx)
	if err != nil {
		return nil, err
	}
	machine, err := FromRawData(*raw)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Probed machine: %s", utils.FmtPretty(machine))
	return machine, nil
}

func collect(ctx context.Context) (*RawData, error) {
	var raw RawData
	lines := make([]string, len(sysctlKeys))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		output, err := utils.RunCommand(ctx, probeTimeout, "/usr/sbin/ioreg", "-a", "-l", "-p", "IOService")
		if err != nil {
			return fmt.Errorf("error reading the IO registry: %v", err)
		}
		raw.Ioreg = output
		return nil
	})
	g.Go(func() error {
		output, err := utils.RunCommand(ctx, probeTimeout, "/usr/sbin/nvram", "-x", "-p")
		if err != nil {
			// Without NVRAM access the reported model is taken as real
			logrus.Warnf("Error reading NVRAM: %v", err)
			return nil
		}
		raw.Nvram = output
		return nil
	})
	for i, key := range sysctlKeys {
		g.Go(func() error {
			output, err := utils.RunCommand(ctx, probeTimeout, "/usr/sbin/sysctl", key)
			if err != nil {
				if optionalSysctlKeys[key] {
					logrus.Debugf("Skipping sysctl %s: %v", key, err)
					return nil
				}
				return fmt.Errorf("error reading sysctl %s: %v", key, err)
			}
			lines[i] = string(bytes.TrimSpace(output))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw.Sysctl = strings.Join(lines, "\n")
	return &raw, nil
}

// FromRawData builds a snapshot from captured tool output.
func FromRawData(raw RawData) (*types.HardwareSnapshot, error) {
	sysctl := parseSysctl(raw.Sysctl)

	root, err := pci.ParseIoreg(raw.Ioreg)
	if err != nil {
		return nil, err
	}

	nvram, err := parseNvram(raw.Nvram)
	if err != nil {
		return nil, err
	}

	var snapshot types.HardwareSnapshot

	if platform := root.Find("IOPlatformExpertDevice"); platform != nil {
		snapshot.ReportedModel = platform.String("model")
		snapshot.ReportedBoardId = platform.String("board-id")
	}
	if snapshot.ReportedModel == "" {
		snapshot.ReportedModel = sysctl["hw.model"]
	}
	// A spoofed machine keeps its identity in the patcher's NVRAM namespace
	snapshot.RealModel = nvramString(nvram, constants.PatcherGuid, "oem-product")
	if snapshot.RealModel == "" {
		snapshot.RealModel = snapshot.ReportedModel
	}
	snapshot.RealBoardId = nvramString(nvram, constants.PatcherGuid, "oem-board")
	if snapshot.RealBoardId == "" {
		snapshot.RealBoardId = snapshot.ReportedBoardId
	}

	for _, device := range pci.Devices(root) {
		switch {
		case classifier.IsDisplayController(device.ClassCode):
			snapshot.Gpus = append(snapshot.Gpus, types.GpuDevice{
				VendorId:     device.VendorId,
				DeviceId:     device.DeviceId,
				ClassCode:    device.ClassCode,
				PciPath:      device.Path,
				RegistryName: device.Name,
			})
		case classifier.IsWirelessController(device.ClassCode):
			if snapshot.Wireless != nil {
				continue
			}
			wireless := &types.WirelessDevice{
				VendorId: device.NativeVendorId,
				DeviceId: device.NativeDeviceId,
				PciPath:  device.Path,
			}
			if code, ok := device.Entry.FindProperty("IO80211CountryCode"); ok {
				wireless.CountryCode = pci.PropertyString(code)
			}
			snapshot.Wireless = wireless
		case classifier.IsNetworkController(device.ClassCode):
			snapshot.Ethernet = append(snapshot.Ethernet, types.EthernetDevice{
				VendorId: device.VendorId,
				DeviceId: device.DeviceId,
				PciPath:  device.Path,
			})
		}
	}

	snapshot.Bluetooth = bluetoothModel(pci.UsbProductNames(root))

	snapshot.Cpu = types.CpuInfo{
		Name:  sysctl["machdep.cpu.brand_string"],
		Flags: append(strings.Fields(sysctl["machdep.cpu.features"]), strings.Fields(sysctl["machdep.cpu.leaf7_features"])...),
	}

	if release := sysctl["kern.osrelease"]; release != "" {
		hostOS, err := parseOSRelease(release)
		if err != nil {
			return nil, err
		}
		hostOS.Build = sysctl["kern.osversion"]
		snapshot.HostOS = hostOS
	}

	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("incomplete probe: %v", err)
	}
	return &snapshot, nil
}

// parseSysctl reads "key: value" lines.
func parseSysctl(output string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		key, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}

func parseNvram(data []byte) (map[string]any, error) {
	vars := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return vars, nil
	}
	if err := plist.NewDecoder(bytes.NewReader(data)).Decode(&vars); err != nil {
		return nil, fmt.Errorf("error decoding nvram output: %v", err)
	}
	return vars, nil
}

func nvramString(vars map[string]any, guid, key string) string {
	return pci.PropertyString(vars[guid+":"+key])
}

// parseOSRelease reads a kernel release such as "21.6.0".
func parseOSRelease(release string) (*types.HostOS, error) {
	parts := strings.SplitN(release, ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid kernel release %q", release)
	}
	hostOS := &types.HostOS{Major: major}
	if len(parts) > 1 {
		if hostOS.Minor, err = strconv.Atoi(parts[1]); err != nil {
			return nil, fmt.Errorf("invalid kernel release %q", release)
		}
	}
	return hostOS, nil
}

// bluetoothModel picks the newest controller among the USB product names.
// Unrecognized controllers leave the model record in charge.
func bluetoothModel(products []string) *constants.BluetoothModel {
	has := func(substrings ...string) bool {
		for _, p := range products {
			for _, s := range substrings {
				if strings.Contains(p, s) {
					return true
				}
			}
		}
		return false
	}

	var model constants.BluetoothModel
	switch {
	case has("BRCM20702"):
		model = constants.BRCM20702v1
	case has("BCM20702A0", "BCM2045A0"):
		// Third party 4.0 dongle
		model = constants.BRCM20702v2
	case has("BRCM2070 Hub"):
		model = constants.BRCM2070
	case has("BRCM2046 Hub"):
		model = constants.BRCM2046
	default:
		return nil
	}
	return &model
}

// GetFromRawData is mainly used during testing, but also from other packages, and therefore needs to be exported
func GetFromRawData(t *testing.T, device string, testDir string) (*types.HardwareSnapshot, error) {
	devicePath := filepath.Join(testDir, "machines", device)

	var raw RawData

	sysctl, err := os.ReadFile(filepath.Join(devicePath, "sysctl.txt"))
	if err != nil {
		t.Fatal(err)
	}
	raw.Sysctl = string(sysctl)

	raw.Ioreg, err = os.ReadFile(filepath.Join(devicePath, "ioreg.plist"))
	if err != nil {
		t.Fatal(err)
	}

	// Machines that never booted through the patcher have no NVRAM dump
	raw.Nvram, err = os.ReadFile(filepath.Join(devicePath, "nvram.plist"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}

	return FromRawData(raw)
}
