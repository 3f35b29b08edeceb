package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// HexInt is an integer that is written as a hex string, e.g. PCI vendor and device IDs.
type HexInt uint64

func ParseHexInt(s string) (HexInt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q: %v", s, err)
	}
	return HexInt(v), nil
}

func (h HexInt) String() string {
	return fmt.Sprintf("0x%04x", uint64(h))
}

func (h HexInt) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

func (h *HexInt) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: hex value must be a scalar", value.Line)
	}
	v, err := ParseHexInt(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %v", value.Line, err)
	}
	*h = v
	return nil
}

func (h HexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HexInt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain JSON numbers are accepted as decimal
		var n uint64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("hex value must be a string or number: %s", data)
		}
		*h = HexInt(n)
		return nil
	}
	v, err := ParseHexInt(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// HexBytes is raw property data, written as a hex string.
type HexBytes []byte

func (b HexBytes) String() string {
	return strings.ToUpper(hex.EncodeToString(b))
}

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *HexBytes) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hex data %q: %v", string(text), err)
	}
	*b = decoded
	return nil
}
