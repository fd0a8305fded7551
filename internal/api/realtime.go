package api

import (
	"net/http"
	"time"

	"github.com/panelwatt/panelwatt-core/internal/energy"
)

// realtimeSummary aggregates the panel-wide figures shown in the
// dashboard header.
type realtimeSummary struct {
	TotalPowerWatts float64 `json:"total_power_watts"`
	AvgVoltage      float64 `json:"avg_voltage"`
	AvgFrequency    float64 `json:"avg_frequency"`
	TodayEnergyKWh  float64 `json:"today_energy_kwh"`
	TodayCost       float64 `json:"today_cost"`
}

// realtimeResponse is the payload for GET /api/realtime-data.
type realtimeResponse struct {
	DeviceID   string                  `json:"device_id"`
	LastUpdate *time.Time              `json:"last_update,omitempty"`
	Summary    realtimeSummary         `json:"summary"`
	Circuits   []energy.CircuitReading `json:"circuits"`
}

// handleRealtimeData returns the latest reading for every active circuit
// plus panel-wide summary figures.
//
// Total power is taken from the main feeds when present, since branch
// circuits double-count what the mains already measure.
func (s *Server) handleRealtimeData(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to load devices")
		return
	}
	if len(devices) == 0 {
		writeJSON(w, http.StatusOK, realtimeResponse{Circuits: []energy.CircuitReading{}})
		return
	}
	device := devices[0]

	readings, err := s.readings.LatestPerCircuit(r.Context(), device.ID)
	if err != nil {
		s.logger.Error("loading latest readings failed", "error", err)
		writeInternalError(w, "failed to load readings")
		return
	}

	resp := realtimeResponse{
		DeviceID: device.DeviceID,
		Circuits: readings,
	}

	today := time.Now().UTC().Format("2006-01-02")
	usage, err := s.rollups.DailyUsage(r.Context(), today, 1)
	if err != nil {
		s.logger.Error("loading today's usage failed", "error", err)
		writeInternalError(w, "failed to load usage")
		return
	}
	if len(usage) > 0 {
		resp.Summary.TodayEnergyKWh = usage[len(usage)-1].EnergyKWh
		resp.Summary.TodayCost = usage[len(usage)-1].Cost
	}

	if len(readings) == 0 {
		resp.Circuits = []energy.CircuitReading{}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var mainTotal, branchTotal, voltageSum, frequencySum float64
	var hasMains bool
	latest := readings[0].Timestamp
	for _, cr := range readings {
		if cr.Timestamp.After(latest) {
			latest = cr.Timestamp
		}
		voltageSum += cr.Voltage
		frequencySum += cr.Frequency
		if cr.CircuitType == energy.CircuitTypeMain {
			hasMains = true
			mainTotal += cr.PowerWatts
		} else {
			branchTotal += cr.PowerWatts
		}
	}
	resp.LastUpdate = &latest
	resp.Summary.AvgVoltage = voltageSum / float64(len(readings))
	resp.Summary.AvgFrequency = frequencySum / float64(len(readings))
	if hasMains {
		resp.Summary.TotalPowerWatts = mainTotal
	} else {
		resp.Summary.TotalPowerWatts = branchTotal
	}

	writeJSON(w, http.StatusOK, resp)
}
