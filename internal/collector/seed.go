package collector

import (
	"context"
	"fmt"

	"github.com/panelwatt/panelwatt-core/internal/energy"
)

// catalogEntry describes one circuit position on the panel.
type catalogEntry struct {
	Number      int
	Name        string
	Description string
	Type        string
	MaxAmperage float64
}

// defaultCatalog is the factory circuit layout for an 18-circuit panel
// monitor: two 200 A main feeds and sixteen branch circuits. Seeding is
// idempotent and never overwrites names, descriptions, or active flags
// the user has edited through the API.
var defaultCatalog = []catalogEntry{
	{1, "Main Panel A", "Main electrical panel circuit A", energy.CircuitTypeMain, 200},
	{2, "Main Panel B", "Main electrical panel circuit B", energy.CircuitTypeMain, 200},
	{3, "Upstairs AC", "Upstairs air conditioning compressor", energy.CircuitTypeBranch, 60},
	{4, "Downstairs AC", "Downstairs air conditioning compressor", energy.CircuitTypeBranch, 60},
	{5, "Pool Pump", "Swimming pool pump and equipment", energy.CircuitTypeBranch, 60},
	{6, "Water Heater", "Electric water heater", energy.CircuitTypeBranch, 60},
	{7, "Dryer", "Electric clothes dryer", energy.CircuitTypeBranch, 60},
	{8, "Kitchen", "Kitchen appliances and outlets", energy.CircuitTypeBranch, 60},
	{9, "Living Room", "Living room lights and outlets", energy.CircuitTypeBranch, 60},
	{10, "Master Bedroom", "Master bedroom circuit", energy.CircuitTypeBranch, 60},
	{11, "Guest Rooms", "Guest bedroom circuits", energy.CircuitTypeBranch, 60},
	{12, "Garage", "Garage outlets and door opener", energy.CircuitTypeBranch, 60},
	{13, "Outdoor Lighting", "Exterior lighting", energy.CircuitTypeBranch, 60},
	{14, "Office", "Home office equipment", energy.CircuitTypeBranch, 60},
	{15, "Basement", "Basement lights and outlets", energy.CircuitTypeBranch, 60},
	{16, "EV Charger", "Electric vehicle charging station", energy.CircuitTypeBranch, 60},
	{17, "Spare 1", "Spare circuit 1", energy.CircuitTypeBranch, 60},
	{18, "Spare 2", "Spare circuit 2", energy.CircuitTypeBranch, 60},
}

// seedCircuits upserts the default catalog for a device.
//
// Parameters:
//   - ctx: Context for cancellation
//   - circuits: Circuit repository
//   - deviceRowID: Row ID of the owning device
//
// Returns:
//   - error: First upsert failure, wrapped with the circuit number
func seedCircuits(ctx context.Context, circuits *energy.CircuitRepository, deviceRowID int64) error {
	for _, entry := range defaultCatalog {
		c := &energy.Circuit{
			DeviceRowID:   deviceRowID,
			CircuitNumber: entry.Number,
			Name:          entry.Name,
			Description:   entry.Description,
			CircuitType:   entry.Type,
			MaxAmperage:   entry.MaxAmperage,
			IsActive:      true,
		}
		if _, err := circuits.Upsert(ctx, c); err != nil {
			return fmt.Errorf("seeding circuit %d: %w", entry.Number, err)
		}
	}
	return nil
}
