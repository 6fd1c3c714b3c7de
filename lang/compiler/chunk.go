package compiler

import (
	"fmt"
	"strings"

	"github.com/mna/cedar/lang/value"
)

// maxConstants is the one-byte constant index limit (spec §3 invariant).
const maxConstants = 256

// jumpPatchByte is written into reserved jump operand bytes until the jump
// target is known (spec §4.2 "Back-patching").
const jumpPatchByte = 0xFF

// Chunk is the compiled bytecode for a single function: its opcode stream,
// inline constant pool, and a parallel source-line map (spec §3).
type Chunk struct {
	FnName string
	FnArity int

	Code      []byte
	Constants []value.Value
	Lines     []int

	names map[string]uint8 // DefineGlobal/GetGlobal/SetGlobal name dedup
}

// Name implements value.Code.
func (c *Chunk) Name() string { return c.FnName }

// Arity implements value.Code.
func (c *Chunk) Arity() int { return c.FnArity }

func newChunk(name string) *Chunk {
	return &Chunk{FnName: name, names: make(map[string]uint8)}
}

// ErrTooManyConst is returned when a 257th constant would be added to a
// chunk (spec §4.1).
type ErrTooManyConst struct{ FnName string }

func (e *ErrTooManyConst) Error() string {
	return fmt.Sprintf("too many constants in function %q", e.FnName)
}

// addConstant appends val to the constant pool and returns its index,
// failing if that would exceed the 256-entry limit.
func (c *Chunk) addConstant(val value.Value) (uint8, error) {
	if len(c.Constants) >= maxConstants {
		return 0, &ErrTooManyConst{FnName: c.FnName}
	}
	c.Constants = append(c.Constants, val)
	return uint8(len(c.Constants) - 1), nil
}

// addNameConstant interns a global name string, reusing an existing
// constant slot for a name already seen in this chunk (spec §4.1 "duplicate-
// name global references reuse the existing constant slot").
func (c *Chunk) addNameConstant(name string) (uint8, error) {
	if idx, ok := c.names[name]; ok {
		return idx, nil
	}
	idx, err := c.addConstant(value.String(name))
	if err != nil {
		return 0, err
	}
	c.names[name] = idx
	return idx, nil
}

// writeOp appends a bare opcode (no operand) at source line.
func (c *Chunk) writeOp(op Opcode, line int) {
	c.Code = append(c.Code, byte(op))
	c.Lines = append(c.Lines, line)
}

// writeOp1 appends an opcode with a one-byte operand.
func (c *Chunk) writeOp1(op Opcode, arg uint8, line int) {
	c.Code = append(c.Code, byte(op), arg)
	c.Lines = append(c.Lines, line, line)
}

// writeJump appends a jump opcode with a reserved two-byte operand and
// returns the offset of the first placeholder byte, to be patched later by
// patchJump.
func (c *Chunk) writeJump(op Opcode, line int) int {
	c.Code = append(c.Code, byte(op), jumpPatchByte, jumpPatchByte)
	c.Lines = append(c.Lines, line, line, line)
	return len(c.Code) - 2
}

// ErrJumpTooFar is returned when a jump or loop offset would not fit in a
// 16-bit operand (spec §4.2).
type ErrJumpTooFar struct{ Backward bool }

func (e *ErrJumpTooFar) Error() string {
	if e.Backward {
		return "loop body too large"
	}
	return "too much code to jump over"
}

// patchJump writes the measured forward-jump offset into the two bytes
// reserved at offset by writeJump.
func (c *Chunk) patchJump(offset int) error {
	jump := len(c.Code) - offset - 2
	if jump > 0xFFFF {
		return &ErrJumpTooFar{}
	}
	c.Code[offset] = byte(jump >> 8)
	c.Code[offset+1] = byte(jump)
	return nil
}

// emitLoop appends an OpLoop instruction jumping back to start.
func (c *Chunk) emitLoop(start, line int) error {
	c.writeOp(OpLoop, line)
	offset := len(c.Code) - start + 2
	if offset > 0xFFFF {
		return &ErrJumpTooFar{Backward: true}
	}
	c.Code = append(c.Code, byte(offset>>8), byte(offset))
	c.Lines = append(c.Lines, line, line)
	return nil
}

// Disassemble renders the chunk's instructions in a human-readable form,
// for the `--debug` trace flag (spec §9 supplemented feature).
func (c *Chunk) Disassemble(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for i := 0; i < len(c.Code); {
		i = c.disassembleInstruction(&b, i)
	}
	return b.String()
}

func (c *Chunk) disassembleInstruction(b *strings.Builder, offset int) int {
	op := Opcode(c.Code[offset])
	fmt.Fprintf(b, "%04d %4d %-16s", offset, c.Lines[offset], op)
	switch operandWidth(op) {
	case 0:
		fmt.Fprintln(b)
		return offset + 1
	case 1:
		arg := c.Code[offset+1]
		if isGlobalOp(op) {
			fmt.Fprintf(b, " %4d '%s'\n", arg, c.Constants[arg])
		} else {
			fmt.Fprintf(b, " %4d\n", arg)
		}
		return offset + 2
	default: // 2-byte jump operand
		arg := uint16(c.Code[offset+1])<<8 | uint16(c.Code[offset+2])
		fmt.Fprintf(b, " %4d\n", arg)
		return offset + 3
	}
}

func isGlobalOp(op Opcode) bool {
	return op == OpDefineGlobal || op == OpGetGlobal || op == OpSetGlobal || op == OpConstant
}
