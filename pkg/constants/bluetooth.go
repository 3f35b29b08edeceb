package constants

import "fmt"

// BluetoothModel orders onboard Bluetooth controllers from oldest to newest.
type BluetoothModel int

const (
	BluetoothNonApplicable BluetoothModel = 0
	AppleCSR               BluetoothModel = 1
	BRCM2046               BluetoothModel = 2
	BRCM2070               BluetoothModel = 3
	BRCM20702v1            BluetoothModel = 4
	BRCM20702v2            BluetoothModel = 5
	BRCM20703              BluetoothModel = 6
	BRCM20703UART          BluetoothModel = 9
	BluetoothUART          BluetoothModel = 10
	BluetoothPCIe          BluetoothModel = 20
)

var bluetoothNames = map[BluetoothModel]string{
	BluetoothNonApplicable: "NonApplicable",
	AppleCSR:               "APPLE_CSR",
	BRCM2046:               "BRCM2046",
	BRCM2070:               "BRCM2070",
	BRCM20702v1:            "BRCM20702_v1",
	BRCM20702v2:            "BRCM20702_v2",
	BRCM20703:              "BRCM20703",
	BRCM20703UART:          "BRCM20703_UART",
	BluetoothUART:          "UART",
	BluetoothPCIe:          "PCIe",
}

func (m BluetoothModel) String() string {
	if name, ok := bluetoothNames[m]; ok {
		return name
	}
	return fmt.Sprintf("bluetooth(%d)", int(m))
}

func (m BluetoothModel) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *BluetoothModel) UnmarshalText(text []byte) error {
	for model, name := range bluetoothNames {
		if name == string(text) {
			*m = model
			return nil
		}
	}
	return fmt.Errorf("unknown bluetooth model %q", string(text))
}
