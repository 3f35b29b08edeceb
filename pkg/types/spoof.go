package types

type SpoofDecision struct {
	RealModel      string         `json:"real-model" yaml:"real-model"`
	SpoofedModel   string         `json:"spoofed-model" yaml:"spoofed-model"`
	SpoofedBoardId string         `json:"spoofed-board-id" yaml:"spoofed-board-id"`
	SerialStrategy SerialStrategy `json:"serial-strategy" yaml:"serial-strategy"`

	// Set only by the advanced strategy
	Serial *SyntheticSerial `json:"serial,omitempty" yaml:"serial,omitempty"`
}

// Spoofed reports whether the OS will see a different identity than the hardware's.
func (d SpoofDecision) Spoofed() bool {
	return d.SpoofedModel != d.RealModel
}

type SyntheticSerial struct {
	SerialNumber string `json:"serial-number" yaml:"serial-number"`
	MLB          string `json:"mlb" yaml:"mlb"`
	ROM          string `json:"rom" yaml:"rom"`
	SystemUUID   string `json:"system-uuid" yaml:"system-uuid"`
}
