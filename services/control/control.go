// services/control/control.go
package control

import (
	"context"
	"encoding/json"
	"time"

	"armcontrol-go/bus"
	"armcontrol-go/errcode"
	"armcontrol-go/proto"
	"armcontrol-go/types"
	"armcontrol-go/x/timex"
)

// Bus topics.
var (
	topicCmd    = bus.T("arm", "cmd")     // inbound frames (proto.Frame payload)
	topicTx     = bus.T("link", "tx")     // outbound wire bytes ([]byte payload)
	topicState  = bus.T("arm", "state")   // retained service state
	topicConfig = bus.T("config", "arm")  // runtime reconfiguration
)

// Loop granularity. Every due-time below is a timestamp compared against
// the injected clock, so ticks are cheap when nothing is due.
const tickPeriod = 5 * time.Millisecond

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run starts the control service and blocks until ctx is cancelled. It
// owns the operating mode, the estop latch and the joint registry; all
// state is touched only from the single loop below.
func Run(ctx context.Context, conn *bus.Connection, cfg types.ArmConfig, deps Deps) {
	s := newService(conn, cfg, deps)
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	cfg  types.ArmConfig
	clk  Clock

	mode       types.Mode
	estopLatch bool

	reg  *Registry
	act  *actuator
	deb  *debouncer
	scan *scanner
	cal  *calibrator

	telemetryPeriod time.Duration
	scanPeriod      time.Duration
	channelsPerScan int

	nextScan      time.Time
	nextTelemetry time.Time
}

func newService(conn *bus.Connection, cfg types.ArmConfig, deps Deps) *service {
	cfg = cfg.Normalize()
	clk := deps.Clock
	if clk == nil {
		clk = realClock{}
	}
	now := clk.Now()
	settle := time.Duration(cfg.MuxSettleMS) * time.Millisecond

	reg := NewRegistry(cfg)
	s := &service{
		conn: conn,
		cfg:  cfg,
		clk:  clk,
		mode: types.ModeIdle,
		reg:  reg,
		act:  &actuator{drv: deps.Servos, reg: reg},
		deb:  newDebouncer(deps.Estop, time.Duration(cfg.DebounceMS)*time.Millisecond, now),
		scan: newScanner(deps.Mux, deps.Enc, settle),
		cal:  newCalibrator(deps.Mux, deps.Enc, settle),

		telemetryPeriod: time.Duration(cfg.TelemetryIntervalMS) * time.Millisecond,
		scanPeriod:      time.Duration(cfg.EncoderScanIntervalMS) * time.Millisecond,
		channelsPerScan: cfg.ChannelsPerScan,
	}
	s.nextScan = now
	s.nextTelemetry = now.Add(s.telemetryPeriod)
	return s
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cmdSub := s.conn.Subscribe(topicCmd)
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cmdSub)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("ready", "configured", nil)

	tick := time.NewTicker(tickPeriod)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.ArmConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.applyConfig(cfg)
			s.publishState("ready", "reconfigured", nil)

		case <-tick.C:
			s.tick(s.clk.Now(), cmdSub)
		}
	}
}

// tick runs one scheduling cycle in fixed order: safety input, command
// dispatch, encoder refresh, telemetry. The order is the concurrency
// discipline; nothing here blocks.
func (s *service) tick(now time.Time, cmdSub *bus.Subscription) {
	// (a) Poll the safety input. The debounced press edge takes the same
	// path as the protocol ESTOP.
	if s.deb.poll(now) && !s.estopLatch {
		s.triggerEstop()
		s.publishState("ready", "estop_latched", nil)
	}

	// (b) Drain and dispatch every fully received frame.
	s.drainCommands(cmdSub)

	// (c) Advance whichever mux sequence is in flight. Calibration and
	// scanning share the mux, which has one active channel, so they never
	// interleave.
	if s.cal.busy() {
		if done, res := s.cal.step(now, s.reg); done {
			if res.Fault {
				s.send(proto.EncodeCalibrationFault(int(res.Joint)))
			} else {
				s.send(proto.EncodeCalibrated(int(res.Joint), res.RefRaw))
			}
		}
	} else if !now.Before(s.nextScan) {
		reads := 0
		for reads < s.channelsPerScan {
			if !s.scan.step(now, s.reg) {
				break
			}
			reads++
		}
		if reads > 0 {
			s.nextScan = now.Add(s.scanPeriod)
		}
	}

	// (d) Emit telemetry if due.
	if !now.Before(s.nextTelemetry) {
		s.emitTelemetry(now)
		s.nextTelemetry = now.Add(s.telemetryPeriod)
	}
}

func (s *service) drainCommands(cmdSub *bus.Subscription) {
	for {
		select {
		case msg := <-cmdSub.Channel():
			fr, ok := msg.Payload.(proto.Frame)
			if !ok {
				continue
			}
			s.handleFrame(fr)
		default:
			return
		}
	}
}

// handleFrame parses and dispatches one frame and surfaces the outcome as
// an acknowledgement. Nothing is silently dropped.
func (s *service) handleFrame(fr proto.Frame) {
	if fr.Err != nil {
		s.send(proto.EncodeNack("", errcode.Of(fr.Err)))
		return
	}
	cmd, err := proto.ParseCommand(fr.Data)
	if err != nil {
		s.send(proto.EncodeNack(cmd.Name, errcode.Of(err)))
		return
	}
	out := s.dispatch(cmd)
	if !out.Accepted() {
		s.send(proto.EncodeNack(cmd.Name, out.Code))
		return
	}
	s.send(proto.EncodeAck(cmd))
	for _, c := range out.Clamps {
		s.send(proto.EncodeClampNotice(c.Joint, c.Applied))
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

func (s *service) applyConfig(cfg types.ArmConfig) {
	cfg = cfg.Normalize()
	s.cfg = cfg
	s.reg.Reconfigure(cfg)

	settle := time.Duration(cfg.MuxSettleMS) * time.Millisecond
	s.scan.settle = settle
	s.cal.settle = settle
	s.deb.window = time.Duration(cfg.DebounceMS) * time.Millisecond
	s.telemetryPeriod = time.Duration(cfg.TelemetryIntervalMS) * time.Millisecond
	s.scanPeriod = time.Duration(cfg.EncoderScanIntervalMS) * time.Millisecond
	s.channelsPerScan = cfg.ChannelsPerScan
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// send hands wire bytes to the link. Non-blocking by bus construction.
func (s *service) send(b []byte) {
	s.conn.Publish(s.conn.NewMessage(topicTx, b, false))
}

func (s *service) publishState(level, status string, err error) {
	payload := map[string]any{"level": level, "status": status, "ts_ms": timex.NowMs()}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, payload, true))
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case T:
		*dst = v
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
