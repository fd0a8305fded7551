package energy

import "time"

// Circuit types. A 16-branch + 2-main panel monitor reports the two main
// feeds on circuits 1-2 and branch circuits on 3-18.
const (
	CircuitTypeMain   = "main"
	CircuitTypeBranch = "branch"
)

// Device statuses.
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
)

// Rate seasons and time-of-use buckets for cost classification.
const (
	SeasonSummer = "summer"
	SeasonWinter = "winter"
	SeasonAll    = "all"

	RateOnPeak       = "on_peak"
	RateOffPeak      = "off_peak"
	RateSuperOffPeak = "super_off_peak"
)

// DateFormat is the storage format for day-grain keys.
const DateFormat = "2006-01-02"

// Device is a metering device registered with the system.
type Device struct {
	ID         int64      `json:"-"`
	DeviceID   string     `json:"device_id"`
	Name       string     `json:"name"`
	IPAddress  string     `json:"ip_address"`
	MACAddress string     `json:"mac_address"`
	Firmware   string     `json:"firmware"`
	Status     string     `json:"status"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Circuit is a single monitored branch or main feed on the panel.
type Circuit struct {
	ID            int64     `json:"id"`
	DeviceRowID   int64     `json:"-"`
	CircuitNumber int       `json:"circuit_number"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CircuitType   string    `json:"circuit_type"`
	MaxAmperage   float64   `json:"max_amperage"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Reading is one normalized per-circuit sample. Append-only.
type Reading struct {
	ID          int64     `json:"-"`
	CircuitID   int64     `json:"-"`
	Timestamp   time.Time `json:"timestamp"`
	Voltage     float64   `json:"voltage"`
	CurrentAmps float64   `json:"current_amps"`
	PowerWatts  float64   `json:"power_watts"`
	EnergyKWh   float64   `json:"energy_kwh"`
	PowerFactor float64   `json:"power_factor"`
	Frequency   float64   `json:"frequency"`
}

// HourlyRollup is one circuit-hour of aggregated readings.
type HourlyRollup struct {
	ID           int64     `json:"-"`
	CircuitID    int64     `json:"-"`
	HourStart    time.Time `json:"hour_start"`
	AvgVoltage   float64   `json:"avg_voltage"`
	AvgCurrent   float64   `json:"avg_current"`
	AvgPowerW    float64   `json:"avg_power_watts"`
	MinPowerW    float64   `json:"min_power_watts"`
	MaxPowerW    float64   `json:"max_power_watts"`
	EnergyKWh    float64   `json:"energy_kwh"`
	SampleCount  int64     `json:"sample_count"`
}

// DailyRollup is one circuit-day, derived strictly from the hourly tier.
type DailyRollup struct {
	ID           int64   `json:"-"`
	CircuitID    int64   `json:"-"`
	Date         string  `json:"date"`
	AvgPowerW    float64 `json:"avg_power_watts"`
	MinPowerW    float64 `json:"min_power_watts"`
	MaxPowerW    float64 `json:"max_power_watts"`
	EnergyKWh    float64 `json:"energy_kwh"`
	CostEstimate float64 `json:"cost_estimate"`
}

// CostRecord is one circuit-day of time-of-use cost attribution.
type CostRecord struct {
	ID               int64   `json:"-"`
	CircuitID        int64   `json:"-"`
	Date             string  `json:"date"`
	OnPeakKWh        float64 `json:"on_peak_kwh"`
	OffPeakKWh       float64 `json:"off_peak_kwh"`
	SuperOffPeakKWh  float64 `json:"super_off_peak_kwh"`
	OnPeakCost       float64 `json:"on_peak_cost"`
	OffPeakCost      float64 `json:"off_peak_cost"`
	SuperOffPeakCost float64 `json:"super_off_peak_cost"`
	TotalCost        float64 `json:"total_cost"`
}

// BillingRate is one row of the utility's time-of-use schedule.
// StartTime/EndTime are "HH:MM" wall-clock strings; windows may wrap
// midnight (e.g. 21:00-06:00).
type BillingRate struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Season     string  `json:"season"`
	RateType   string  `json:"rate_type"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	RatePerKWh float64 `json:"rate_per_kwh"`
	IsActive   bool    `json:"is_active"`
}

// CircuitReading is the latest sample for a circuit, joined with circuit
// metadata for the realtime dashboard view.
type CircuitReading struct {
	CircuitID     int64     `json:"-"`
	CircuitNumber int       `json:"circuit"`
	Name          string    `json:"name"`
	CircuitType   string    `json:"circuit_type"`
	Timestamp     time.Time `json:"timestamp"`
	Voltage       float64   `json:"voltage"`
	CurrentAmps   float64   `json:"current_amps"`
	PowerWatts    float64   `json:"power_watts"`
	PowerFactor   float64   `json:"power_factor"`
	Frequency     float64   `json:"frequency"`
}

// HourlyPoint is one circuit-hour for the historical chart.
type HourlyPoint struct {
	HourStart     time.Time `json:"hour"`
	CircuitNumber int       `json:"circuit"`
	Name          string    `json:"name"`
	AvgPowerW     float64   `json:"avg_power_watts"`
	EnergyKWh     float64   `json:"energy_kwh"`
}

// DailyUsage is one day's total energy and cost across all circuits.
type DailyUsage struct {
	Date      string  `json:"date"`
	EnergyKWh float64 `json:"energy_kwh"`
	Cost      float64 `json:"cost"`
}

// CostBucketTotals sums the time-of-use buckets across all circuits for
// a single day.
type CostBucketTotals struct {
	Date             string  `json:"date"`
	OnPeakKWh        float64 `json:"on_peak_kwh"`
	OffPeakKWh       float64 `json:"off_peak_kwh"`
	SuperOffPeakKWh  float64 `json:"super_off_peak_kwh"`
	OnPeakCost       float64 `json:"on_peak_cost"`
	OffPeakCost      float64 `json:"off_peak_cost"`
	SuperOffPeakCost float64 `json:"super_off_peak_cost"`
	TotalCost        float64 `json:"total_cost"`
}

// MonthlyCost is one calendar month's energy and cost totals.
type MonthlyCost struct {
	Month     string  `json:"month"` // YYYY-MM
	EnergyKWh float64 `json:"energy_kwh"`
	TotalCost float64 `json:"total_cost"`
}

// CircuitCost ranks a circuit by cost for a given day.
type CircuitCost struct {
	CircuitNumber int     `json:"circuit"`
	Name          string  `json:"name"`
	EnergyKWh     float64 `json:"energy_kwh"`
	TotalCost     float64 `json:"total_cost"`
}

// ReadingStats summarises raw readings over a window.
type ReadingStats struct {
	Count     int64   `json:"count"`
	AvgPowerW float64 `json:"avg_power_watts"`
}

// ExportDailyRow is one row of the daily export.
type ExportDailyRow struct {
	Date          string  `json:"date"`
	CircuitNumber int     `json:"circuit"`
	Name          string  `json:"name"`
	EnergyKWh     float64 `json:"energy_kwh"`
	AvgPowerW     float64 `json:"avg_power_watts"`
	MaxPowerW     float64 `json:"max_power_watts"`
	CostEstimate  float64 `json:"cost_estimate"`
}

// ExportHourlyRow is one row of the hourly export.
type ExportHourlyRow struct {
	HourStart     time.Time `json:"hour"`
	CircuitNumber int       `json:"circuit"`
	Name          string    `json:"name"`
	EnergyKWh     float64   `json:"energy_kwh"`
	AvgPowerW     float64   `json:"avg_power_watts"`
	SampleCount   int64     `json:"sample_count"`
}

// ExportRawRow is one row of the raw export (capped).
type ExportRawRow struct {
	Timestamp     time.Time `json:"timestamp"`
	CircuitNumber int       `json:"circuit"`
	Voltage       float64   `json:"voltage"`
	CurrentAmps   float64   `json:"current_amps"`
	PowerWatts    float64   `json:"power_watts"`
	PowerFactor   float64   `json:"power_factor"`
	Frequency     float64   `json:"frequency"`
}
