package constants

import (
	"fmt"
	"strconv"
	"strings"
)

// Darwin kernel majors for the releases the patcher knows about.
const (
	SnowLeopard  = 10
	Lion         = 11
	MountainLion = 12
	Mavericks    = 13
	Yosemite     = 14
	ElCapitan    = 15
	Sierra       = 16
	HighSierra   = 17
	Mojave       = 18
	Catalina     = 19
	BigSur       = 20
	Monterey     = 21
	Ventura      = 22

	// MaxOS marks a model that is still supported by the newest release.
	MaxOS = 99
)

var osNames = map[int]string{
	SnowLeopard:  "Snow Leopard",
	Lion:         "Lion",
	MountainLion: "Mountain Lion",
	Mavericks:    "Mavericks",
	Yosemite:     "Yosemite",
	ElCapitan:    "El Capitan",
	Sierra:       "Sierra",
	HighSierra:   "High Sierra",
	Mojave:       "Mojave",
	Catalina:     "Catalina",
	BigSur:       "Big Sur",
	Monterey:     "Monterey",
	Ventura:      "Ventura",
	MaxOS:        "latest",
}

// OSName returns the marketing name for a kernel major.
func OSName(kernelMajor int) string {
	if name, ok := osNames[kernelMajor]; ok {
		return name
	}
	return fmt.Sprintf("Darwin %d", kernelMajor)
}

// ParseOS accepts a kernel major ("22") or a marketing name ("Ventura",
// "big sur").
func ParseOS(s string) (int, error) {
	s = strings.TrimSpace(s)
	if major, err := strconv.Atoi(s); err == nil {
		return major, nil
	}
	for major, name := range osNames {
		if strings.EqualFold(name, s) || strings.EqualFold(strings.ReplaceAll(name, " ", ""), s) {
			return major, nil
		}
	}
	return 0, fmt.Errorf("unknown OS %q", s)
}
