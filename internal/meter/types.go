package meter

// Reading is one normalized per-circuit sample as reported by the device.
//
// Field variants in the device payload (V vs voltage, W vs watts, etc.)
// are already resolved; a Reading always carries every field, falling back
// to nominal defaults for anything the device omitted.
type Reading struct {
	Circuit     int     `json:"circuit"`
	Voltage     float64 `json:"voltage"`
	CurrentAmps float64 `json:"current_amps"`
	PowerWatts  float64 `json:"power_watts"`
	EnergyKWh   float64 `json:"energy_kwh"`
	PowerFactor float64 `json:"power_factor"`
	Frequency   float64 `json:"frequency"`
}

// Info is the device's self-reported identity.
//
// The device reports its identifier under the camelCase key "deviceId";
// the remaining keys are lowercase.
type Info struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	MAC      string `json:"mac"`
	Firmware string `json:"firmware"`
}

// Nominal defaults applied when the device payload omits a field.
// North American split-phase service: 240 V, 60 Hz, unity power factor.
const (
	DefaultVoltage     = 240.0
	DefaultPowerFactor = 1.0
	DefaultFrequency   = 60.0
)

// CircuitCount is the number of monitored circuits on the panel:
// two main feeds plus sixteen branch circuits.
const CircuitCount = 18
