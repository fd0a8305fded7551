package meter

import (
	"encoding/json"
	"fmt"
)

// Key priority tables for payload normalization.
//
// The device firmware is inconsistent across endpoints and versions: the
// same datum appears under different names depending on which API answered.
// Each table lists the accepted keys in priority order; the first present
// key wins.
var (
	circuitKeys = []string{"circuit", "channel"}
	voltageKeys = []string{"voltage", "V"}
	currentKeys = []string{"current", "A", "amps"}
	powerKeys   = []string{"power", "W", "watts"}
	energyKeys  = []string{"energy", "kWh", "kwh"}
	pfKeys      = []string{"power_factor", "pf"}
	freqKeys    = []string{"frequency", "Hz"}
)

// Normalize converts a raw device payload into normalized readings.
//
// Container variants accepted:
//   - {"circuits": [...]}
//   - {"channels": [...]}
//   - a bare JSON array
//   - a single reading object (treated as a one-element list)
//
// Field variants are resolved through the key priority tables above.
// Missing fields fall back to defaults: voltage 240.0, power factor 1.0,
// frequency 60.0, everything else 0.0. A missing circuit number defaults
// to the item's position in the list (1-based).
//
// Two payloads carrying the same data under different names normalize to
// identical readings.
//
// Parameters:
//   - payload: Raw JSON response body from the device
//
// Returns:
//   - []Reading: Normalized readings (empty if the payload held none)
//   - error: If the payload is not valid JSON
func Normalize(payload []byte) ([]Reading, error) {
	var parsed any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("parsing device payload: %w", err)
	}

	items := extractItems(parsed)

	readings := make([]Reading, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		readings = append(readings, normalizeItem(i, m))
	}
	return readings, nil
}

// extractItems locates the list of reading objects within the payload.
func extractItems(parsed any) []any {
	switch v := parsed.(type) {
	case []any:
		return v
	case map[string]any:
		if circuits, ok := v["circuits"].([]any); ok {
			return circuits
		}
		if channels, ok := v["channels"].([]any); ok {
			return channels
		}
		// Single reading object
		return []any{v}
	default:
		return nil
	}
}

// normalizeItem resolves one reading object through the key tables.
// index is the item's 0-based position, used for the circuit default.
func normalizeItem(index int, m map[string]any) Reading {
	return Reading{
		Circuit:     pickInt(m, circuitKeys, index+1),
		Voltage:     pickFloat(m, voltageKeys, DefaultVoltage),
		CurrentAmps: pickFloat(m, currentKeys, 0.0),
		PowerWatts:  pickFloat(m, powerKeys, 0.0),
		EnergyKWh:   pickFloat(m, energyKeys, 0.0),
		PowerFactor: pickFloat(m, pfKeys, DefaultPowerFactor),
		Frequency:   pickFloat(m, freqKeys, DefaultFrequency),
	}
}

// pickFloat returns the first numeric value found under the candidate keys.
func pickFloat(m map[string]any, keys []string, def float64) float64 {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := toFloat(v); ok {
				return f
			}
		}
	}
	return def
}

// pickInt returns the first integral value found under the candidate keys.
func pickInt(m map[string]any, keys []string, def int) int {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := toFloat(v); ok {
				return int(f)
			}
		}
	}
	return def
}

// toFloat coerces JSON number representations to float64.
// Strings are rejected; the firmware never quotes numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
