// proto/frame.go
package proto

import "armcontrol-go/errcode"

// PacketMaxLen bounds one wire frame, delimiter included. Anything longer
// is discarded and reported; the stream resynchronises at the next
// delimiter.
const PacketMaxLen = 256

// Frame is one unit handed out by the Accumulator: either a complete
// payload (without the delimiter) or a framing error.
type Frame struct {
	Data []byte
	Err  error
}

// Accumulator turns a byte stream into delimited frames. It never blocks
// and holds at most one partial frame. A single bad frame never wedges the
// stream: after an overflow the accumulator skips to the next delimiter
// and carries on.
type Accumulator struct {
	line     []byte
	overflow bool
}

// Push consumes a chunk and returns any frames completed by it.
// CR is ignored; LF delimits. An over-long partial is dropped and surfaces
// once as a Frame with errcode.FrameTooLong.
func (a *Accumulator) Push(p []byte) []Frame {
	var out []Frame
	for _, b := range p {
		switch b {
		case '\n':
			if a.overflow {
				a.overflow = false
			} else if len(a.line) > 0 {
				out = append(out, Frame{Data: append([]byte(nil), a.line...)})
			}
			a.line = a.line[:0]
		case '\r':
			// ignore
		default:
			if a.overflow {
				continue
			}
			if len(a.line) >= PacketMaxLen-1 {
				a.line = a.line[:0]
				a.overflow = true
				out = append(out, Frame{Err: errcode.FrameTooLong})
				continue
			}
			a.line = append(a.line, b)
		}
	}
	return out
}

// Reset drops any buffered partial frame.
func (a *Accumulator) Reset() {
	a.line = a.line[:0]
	a.overflow = false
}
