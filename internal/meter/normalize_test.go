package meter

import (
	"reflect"
	"testing"
)

func TestNormalize_ContainerVariants(t *testing.T) {
	// The same datum in every container shape must normalize identically.
	expected := []Reading{{
		Circuit:     1,
		Voltage:     120.0,
		CurrentAmps: 0.0,
		PowerWatts:  500.0,
		EnergyKWh:   0.0,
		PowerFactor: 1.0,
		Frequency:   60.0,
	}}

	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "circuits container",
			payload: `{"circuits":[{"circuit":1,"voltage":120,"power":500}]}`,
		},
		{
			name:    "channels container",
			payload: `{"channels":[{"channel":1,"V":120,"W":500}]}`,
		},
		{
			name:    "bare array",
			payload: `[{"circuit":1,"voltage":120,"watts":500}]`,
		},
		{
			name:    "single object",
			payload: `{"circuit":1,"V":120,"W":500}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.payload))
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if !reflect.DeepEqual(got, expected) {
				t.Errorf("got %+v, want %+v", got, expected)
			}
		})
	}
}

func TestNormalize_FieldVariants(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected Reading
	}{
		{
			name:    "long names",
			payload: `[{"circuit":3,"voltage":239.5,"current":4.2,"power":1005.9,"energy":12.5,"power_factor":0.98,"frequency":59.98}]`,
			expected: Reading{
				Circuit: 3, Voltage: 239.5, CurrentAmps: 4.2, PowerWatts: 1005.9,
				EnergyKWh: 12.5, PowerFactor: 0.98, Frequency: 59.98,
			},
		},
		{
			name:    "short names",
			payload: `[{"channel":3,"V":239.5,"A":4.2,"W":1005.9,"kWh":12.5,"pf":0.98,"Hz":59.98}]`,
			expected: Reading{
				Circuit: 3, Voltage: 239.5, CurrentAmps: 4.2, PowerWatts: 1005.9,
				EnergyKWh: 12.5, PowerFactor: 0.98, Frequency: 59.98,
			},
		},
		{
			name:    "amps and lowercase kwh",
			payload: `[{"channel":3,"amps":4.2,"kwh":12.5}]`,
			expected: Reading{
				Circuit: 3, Voltage: DefaultVoltage, CurrentAmps: 4.2,
				EnergyKWh: 12.5, PowerFactor: DefaultPowerFactor, Frequency: DefaultFrequency,
			},
		},
		{
			name:    "all defaults",
			payload: `[{}]`,
			expected: Reading{
				Circuit: 1, Voltage: DefaultVoltage, PowerFactor: DefaultPowerFactor,
				Frequency: DefaultFrequency,
			},
		},
		{
			name:    "priority prefers long name",
			payload: `[{"voltage":240,"V":120}]`,
			expected: Reading{
				Circuit: 1, Voltage: 240.0, PowerFactor: DefaultPowerFactor,
				Frequency: DefaultFrequency,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.payload))
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 reading, got %d", len(got))
			}
			if got[0] != tt.expected {
				t.Errorf("got %+v, want %+v", got[0], tt.expected)
			}
		})
	}
}

func TestNormalize_CircuitDefaultsToPosition(t *testing.T) {
	payload := `{"circuits":[{"W":100},{"W":200},{"W":300}]}`

	got, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got))
	}
	for i, r := range got {
		if r.Circuit != i+1 {
			t.Errorf("reading %d: expected circuit %d, got %d", i, i+1, r.Circuit)
		}
	}
}

func TestNormalize_MalformedJSON(t *testing.T) {
	_, err := Normalize([]byte(`{"circuits": [`))
	if err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestNormalize_EmptyContainers(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty circuits", `{"circuits":[]}`},
		{"empty array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.payload))
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no readings, got %d", len(got))
			}
		})
	}
}

func TestNormalize_SkipsNonObjectItems(t *testing.T) {
	payload := `[{"circuit":1,"W":100}, "garbage", 42, {"circuit":2,"W":200}]`

	got, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if got[0].Circuit != 1 || got[1].Circuit != 2 {
		t.Errorf("unexpected circuits: %+v", got)
	}
}
