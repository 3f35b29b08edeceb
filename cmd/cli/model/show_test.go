package model

import (
	"slices"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
)

func TestShowModel(t *testing.T) {
	cmd := showCommand{
		Context: newTestContext(t),
		format:  "yaml",
	}

	info, err := cmd.modelInfo("MacBookPro9,1")
	if err != nil {
		t.Fatal(err)
	}
	if info.BoardId != "Mac-4B7AC7E43945597E" {
		t.Fatalf("unexpected board-id %s", info.BoardId)
	}
	if !info.MustSpoof || info.SpoofTarget == "" {
		t.Fatalf("expected a spoof target, got %+v", info)
	}
	if info.MaxOS != "Catalina" {
		t.Fatalf("unexpected max OS %s", info.MaxOS)
	}
	if !slices.Contains(info.Sets, catalog.SetMustSpoof) {
		t.Fatalf("sets do not include %s: %v", catalog.SetMustSpoof, info.Sets)
	}
}

func TestShowUnknownModel(t *testing.T) {
	cmd := showCommand{Context: newTestContext(t)}

	_, err := cmd.modelInfo("MacBookPro99,1")
	if err == nil {
		t.Fatal("expected an error for an unknown model")
	}
}

func TestShowOutput(t *testing.T) {
	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			cmd := showCommand{
				Context: newTestContext(t),
				format:  format,
			}
			cobraCmd := &cobra.Command{}
			cobraCmd.SetContext(t.Context())
			if err := cmd.run(cobraCmd, []string{"iMac9,1"}); err != nil {
				t.Fatal(err)
			}
		})
	}
}
