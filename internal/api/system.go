package api

import (
	"net/http"
	"time"
)

// systemStatusResponse is the payload for GET /api/system-status.
type systemStatusResponse struct {
	Version        string         `json:"version"`
	ServerTime     time.Time      `json:"server_time"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	CollectorState string         `json:"collector_state"`
	DeviceID       string         `json:"device_id,omitempty"`
	MQTTConnected  bool           `json:"mqtt_connected"`
	Readings       readingsStatus `json:"readings"`
	Devices        []deviceStatus `json:"devices"`
}

type readingsStatus struct {
	Last24hCount  int64      `json:"last_24h_count"`
	AvgPowerWatts float64    `json:"avg_power_watts_24h"`
	LastTimestamp *time.Time `json:"last_timestamp,omitempty"`
}

type deviceStatus struct {
	DeviceID string     `json:"device_id"`
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// handleSystemStatus reports collector state, broker connectivity, and
// recent ingest volume for the dashboard's health panel.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	resp := systemStatusResponse{
		Version:       s.version,
		ServerTime:    now,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		MQTTConnected: s.mqtt != nil && s.mqtt.IsConnected(),
		Devices:       []deviceStatus{},
	}

	if s.collector != nil {
		resp.CollectorState = s.collector.State().String()
		resp.DeviceID = s.collector.DeviceID()
	}

	stats, err := s.readings.StatsSince(r.Context(), now.Add(-24*time.Hour))
	if err != nil {
		s.logger.Error("loading reading stats failed", "error", err)
		writeInternalError(w, "failed to load system status")
		return
	}
	resp.Readings.Last24hCount = stats.Count
	resp.Readings.AvgPowerWatts = stats.AvgPowerW

	last, err := s.readings.LastTimestamp(r.Context())
	if err != nil {
		s.logger.Error("loading last reading timestamp failed", "error", err)
		writeInternalError(w, "failed to load system status")
		return
	}
	resp.Readings.LastTimestamp = last

	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to load system status")
		return
	}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, deviceStatus{
			DeviceID: d.DeviceID,
			Name:     d.Name,
			Status:   d.Status,
			LastSeen: d.LastSeen,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
