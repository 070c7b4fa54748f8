package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteOccupancy records the current lot occupancy after an entry or exit.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - occupied: Number of slots currently occupied
//   - total: Total number of configured slots
//
// Example:
//
//	client.WriteOccupancy(7, 10)
func (c *Client) WriteOccupancy(occupied, total int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"occupancy",
		nil,
		map[string]interface{}{
			"occupied": occupied,
			"total":    total,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteGateEvent records a single gate controller event.
//
// Tags are kept low-cardinality: action, gate, and status. The card UID is
// a field so it does not explode the tag index.
//
// Parameters:
//   - action: The event kind ("entry" or "exit")
//   - gate: Which reader reported it ("entrance" or "exit")
//   - status: The controller's verdict ("success", "denied_unauthorized", ...)
//   - cardUID: The normalised card UID
//   - slotID: Assigned slot, 0 when none was reported
//
// Example:
//
//	client.WriteGateEvent("entry", "entrance", "success", "A1B2C3D4", 3)
func (c *Client) WriteGateEvent(action, gate, status, cardUID string, slotID int) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"card_uid": cardUID,
		"count":    1,
	}
	if slotID > 0 {
		fields["slot_id"] = slotID
	}

	point := write.NewPoint(
		"gate_events",
		map[string]string{
			"action": action,
			"gate":   gate,
			"status": status,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRevenue records a fee charged on vehicle exit.
//
// Parameters:
//   - slotID: The slot the vehicle left
//   - durationMinutes: Measured length of the stay
//   - fee: Amount charged under the pricing policy at exit time
func (c *Client) WriteRevenue(slotID int, durationMinutes int, fee float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"revenue",
		map[string]string{
			"slot_id": strconv.Itoa(slotID),
		},
		map[string]interface{}{
			"duration_minutes": durationMinutes,
			"fee":              fee,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
