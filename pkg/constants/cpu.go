package constants

import (
	"fmt"
	"strings"
)

// CpuGeneration is ordered: comparisons between generations are meaningful.
type CpuGeneration int

const (
	Pentium4 CpuGeneration = iota
	Yonah
	Conroe
	Penryn
	Nehalem
	SandyBridge
	IvyBridge
	Haswell
	Broadwell
	Skylake
	KabyLake
	CoffeeLake
	CometLake
	IceLake

	AppleDTK CpuGeneration = 112
	AppleM1  CpuGeneration = 114
)

var cpuGenerationNames = map[CpuGeneration]string{
	Pentium4:    "pentium-4",
	Yonah:       "yonah",
	Conroe:      "conroe",
	Penryn:      "penryn",
	Nehalem:     "nehalem",
	SandyBridge: "sandy-bridge",
	IvyBridge:   "ivy-bridge",
	Haswell:     "haswell",
	Broadwell:   "broadwell",
	Skylake:     "skylake",
	KabyLake:    "kaby-lake",
	CoffeeLake:  "coffee-lake",
	CometLake:   "comet-lake",
	IceLake:     "ice-lake",
	AppleDTK:    "apple-dtk",
	AppleM1:     "apple-m1",
}

func (g CpuGeneration) String() string {
	if name, ok := cpuGenerationNames[g]; ok {
		return name
	}
	return fmt.Sprintf("cpu-generation(%d)", int(g))
}

func ParseCpuGeneration(name string) (CpuGeneration, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for gen, genName := range cpuGenerationNames {
		if genName == name {
			return gen, nil
		}
	}
	return 0, fmt.Errorf("unknown cpu generation %q", name)
}

func (g CpuGeneration) MarshalText() ([]byte, error) {
	if _, ok := cpuGenerationNames[g]; !ok {
		return nil, fmt.Errorf("unknown cpu generation %d", int(g))
	}
	return []byte(g.String()), nil
}

func (g *CpuGeneration) UnmarshalText(text []byte) error {
	gen, err := ParseCpuGeneration(string(text))
	if err != nil {
		return err
	}
	*g = gen
	return nil
}
