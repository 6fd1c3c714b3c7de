package machine

import "github.com/mna/cedar/lang/value"

// callFrame is one function activation on the VM's call stack (spec §3
// "CallFrame"). slotBase never moves while the frame is active; ip always
// points at a valid instruction boundary in fn's chunk.
type callFrame struct {
	fn      *value.Function
	ip      int
	slotBase int
}
