package model

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/hardware_info"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
)

func newTestContext(t *testing.T) *common.Context {
	t.Helper()
	hardwareCatalog, err := catalog.Default()
	if err != nil {
		t.Fatalf("error loading catalog: %v", err)
	}

	machine, err := hardware_info.GetFromRawData(t, "MacBookPro9,1", "../../../test_data")
	if err != nil {
		t.Fatalf("error getting hardware info: %v", err)
	}

	return &common.Context{
		Cache:   storage.NewMockCache(machine),
		Catalog: hardwareCatalog,
	}
}

func TestList(t *testing.T) {
	ctx := newTestContext(t)
	cmd := listCommand{Context: ctx}

	var out bytes.Buffer
	err := cmd.printModelsTable(&out, "MacBookPro9,1")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "MacBookPro9,1*") {
		t.Fatalf("host model is not marked:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Mac-4B7AC7E43945597E") {
		t.Fatalf("board-id missing:\n%s", out.String())
	}
}

func TestListFamily(t *testing.T) {
	ctx := newTestContext(t)
	cmd := listCommand{Context: ctx, family: "imac"}

	rows := cmd.modelRows("")
	if len(rows) == 0 {
		t.Fatal("no iMac models listed")
	}
	for _, row := range rows {
		if !strings.HasPrefix(row[0], "iMac") {
			t.Fatalf("unexpected model %s in iMac listing", row[0])
		}
		if strings.HasSuffix(row[0], "*") {
			t.Fatalf("%s marked without a host model", row[0])
		}
	}
}

func TestListRowColumns(t *testing.T) {
	ctx := newTestContext(t)
	cmd := listCommand{Context: ctx, family: "MacBookPro"}

	for _, row := range cmd.modelRows("MacBookPro9,1") {
		if row[0] != "MacBookPro9,1*" {
			continue
		}
		expected := []string{"MacBookPro9,1*", "Mac-4B7AC7E43945597E", "ivy-bridge", "Catalina", "yes"}
		for i := range expected {
			if row[i] != expected[i] {
				t.Fatalf("column %d: expected %q, got %q", i, expected[i], row[i])
			}
		}
		return
	}
	t.Fatal("MacBookPro9,1 not listed")
}

func TestHostModel(t *testing.T) {
	ctx := newTestContext(t)
	if model := hostModel(t.Context(), ctx); model != "MacBookPro9,1" {
		t.Fatalf("expected MacBookPro9,1, got %q", model)
	}
}
