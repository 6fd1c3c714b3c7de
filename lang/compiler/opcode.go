// Package compiler implements the single-pass Pratt compiler: it consumes
// a token stream and emits bytecode directly into a Chunk, with no
// intermediate AST (spec §4.2).
package compiler

import "fmt"

// Opcode identifies one bytecode instruction (spec §4.1).
type Opcode uint8

const (
	OpReturn Opcode = iota
	OpConstant
	OpNegate
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNotEq
	OpGt
	OpGe
	OpLt
	OpLe
	OpNull
	OpTrue
	OpFalse
	OpPrint
	OpPop
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpJumpIfFalse
	OpJump
	OpLoop
	OpCall
)

var opcodeNames = [...]string{
	OpReturn:       "return",
	OpConstant:     "constant",
	OpNegate:       "negate",
	OpNot:          "not",
	OpAdd:          "add",
	OpSub:          "sub",
	OpMul:          "mul",
	OpDiv:          "div",
	OpEq:           "eq",
	OpNotEq:        "not_eq",
	OpGt:           "gt",
	OpGe:           "ge",
	OpLt:           "lt",
	OpLe:           "le",
	OpNull:         "null",
	OpTrue:         "true",
	OpFalse:        "false",
	OpPrint:        "print",
	OpPop:          "pop",
	OpDefineGlobal: "define_global",
	OpGetGlobal:    "get_global",
	OpSetGlobal:    "set_global",
	OpGetLocal:     "get_local",
	OpSetLocal:     "set_local",
	OpJumpIfFalse:  "jump_if_false",
	OpJump:         "jump",
	OpLoop:         "loop",
	OpCall:         "call",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// operandWidth returns the number of bytes of inline operand that follow
// the opcode byte itself (0 for opcodes with no operand).
func operandWidth(op Opcode) int {
	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal, OpGetLocal, OpSetLocal, OpCall:
		return 1
	case OpJumpIfFalse, OpJump, OpLoop:
		return 2
	default:
		return 0
	}
}
