package basic

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/patchset"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

const groupID = "basic"

func Group(title string) *cobra.Group {
	return &cobra.Group{
		ID:    groupID,
		Title: title,
	}
}

// resolveFlags override the stored configuration for a single run.
type resolveFlags struct {
	model    string
	serial   types.SerialStrategy
	targetOS string

	// Resolve for the running system only, ignoring any configured target
	live bool
}

func (f *resolveFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.model, "model", "", "build for another model instead of this machine")
	flags.Var(&f.serial, "serial", "serial strategy: none, minimal, moderate or advanced")
	flags.StringVar(&f.targetOS, "target-os", "", "target macOS release, by name or kernel major")
}

func (f *resolveFlags) userConfig(cfg storage.Config) (types.UserConfig, error) {
	userConfig, err := storage.LoadUserConfig(cfg)
	if err != nil {
		return userConfig, err
	}

	if f.live {
		userConfig.TargetModel = ""
		userConfig.TargetOS = 0
	}
	if f.model != "" {
		userConfig.TargetModel = f.model
	}
	if f.serial != "" {
		userConfig.SerialStrategy = f.serial
	}
	if f.targetOS != "" {
		major, err := constants.ParseOS(f.targetOS)
		if err != nil {
			return userConfig, err
		}
		userConfig.TargetOS = major
	}
	return userConfig, nil
}

// resolvePlan resolves the plan for the configured model. The machine is
// probed unless another model is targeted and the probe fails, which is the
// case when building on a different computer.
func resolvePlan(ctx context.Context, cliCtx *common.Context, f resolveFlags) (*types.PatchPlan, *types.HardwareSnapshot, error) {
	userConfig, err := f.userConfig(cliCtx.Config)
	if err != nil {
		return nil, nil, err
	}

	stopProgress := common.StartProgressSpinner("Probing hardware")
	machine, err := cliCtx.Cache.GetMachineInfo(ctx)
	stopProgress()
	if err != nil {
		if userConfig.TargetModel == "" {
			return nil, nil, fmt.Errorf("error getting machine info: %v\n\nUse --model to build for another machine.", err)
		}
		logrus.Debugf("Building for %s without a hardware probe: %v", userConfig.TargetModel, err)
		machine = &types.HardwareSnapshot{}
	}

	plan, err := patchset.NewResolver(cliCtx.Catalog).Resolve(*machine, userConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("error resolving patches: %v", err)
	}
	return plan, machine, nil
}

func fingerprint(plan *types.PatchPlan) (string, error) {
	hash, err := plan.Fingerprint()
	if err != nil {
		return "", fmt.Errorf("error hashing plan: %v", err)
	}
	return fmt.Sprintf("%016x", hash), nil
}

// printSummary describes the plan on stderr, keeping stdout for the document.
func printSummary(plan *types.PatchPlan) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(os.Stderr, "%s %s, macOS %s\n", bold("Target:"), plan.TargetModel, constants.OSName(plan.TargetOS))
	if plan.Spoof.Spoofed() {
		fmt.Fprintf(os.Stderr, "%s reported as %s (%s)\n", bold("Spoof:"), plan.Spoof.SpoofedModel, plan.Spoof.SpoofedBoardId)
	} else if plan.Spoof.SpoofedBoardId != "" {
		fmt.Fprintf(os.Stderr, "%s board-id %s\n", bold("Spoof:"), plan.Spoof.SpoofedBoardId)
	}
	fmt.Fprintf(os.Stderr, "%s %d firmware, %d system volume\n", bold("Actions:"), len(plan.FirmwareActions), len(plan.VolumeActions))
	if args := plan.BootArgString(); args != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", bold("Boot arguments:"), args)
	}
	if plan.RequiresCacheRebuild {
		fmt.Fprintf(os.Stderr, "%s %s\n", bold("Kernel cache rebuild:"), plan.CacheScope)
	}
}
