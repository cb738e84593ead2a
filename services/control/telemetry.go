// services/control/telemetry.go
package control

import (
	"time"

	"armcontrol-go/proto"
	"armcontrol-go/types"
)

// emitTelemetry assembles one frame from the registry and hands it to the
// link topic. Delivery is best-effort: the bus queue and the link's port
// write both drop rather than block, so transmission backpressure can
// never stall this loop.
func (s *service) emitTelemetry(now time.Time) {
	f := types.TelemetryFrame{
		Mode:   s.mode,
		Joints: s.reg.Snapshot(),
		Button: s.deb.Level(),
		TsMs:   now.UnixMilli(),
	}
	s.send(proto.EncodeTelemetry(f))
}
