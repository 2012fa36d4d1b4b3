// Package bytecode defines the compiled instruction format that couples the
// compiler to the VM: opcodes, fixed-width operands, a constant pool, and a
// run-length encoded line table for diagnostics.
package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Instructions is a decoded or encoded stream of opcode bytes and their
// inline operands.
type Instructions []byte

// Opcode identifies a single VM instruction.
type Opcode byte

const (
	OpConstant Opcode = iota // u8 idx       -- push constants[idx]
	OpNil                    // --           -- push nil
	OpTrue                   // --           -- push true
	OpFalse                  // --           -- push false
	OpPop                    // --           -- pop
	OpDup                    // --           -- push peek(0)
	OpGetLocal               // u8 slot      -- push slots[slot]
	OpSetLocal               // u8 slot      -- slots[slot] = peek(0)
	OpGetGlobal              // u8 nameIdx   -- push globals[name]
	OpDefineGlobal           // u8 nameIdx   -- globals[name] = pop()
	OpSetGlobal              // u8 nameIdx   -- globals[name] = peek(0), if defined
	OpGetUpvalue             // u8 slot      -- push *closure.upvalues[slot]
	OpSetUpvalue             // u8 slot      -- *closure.upvalues[slot] = peek(0)
	OpEqual                  // --           -- pop 2, push a == b
	OpGreater                // --           -- pop 2, push a > b
	OpLess                   // --           -- pop 2, push a < b
	OpAdd                    // --           -- pop 2, push a + b (numeric or string concat)
	OpSubtract               // --           -- pop 2, push a - b
	OpMultiply               // --           -- pop 2, push a * b
	OpDivide                 // --           -- pop 2, push a / b
	OpNot                    // --           -- push !truthy(pop())
	OpNegate                 // --           -- push -pop()
	OpPrint                  // --           -- pop, print, newline
	OpJump                   // u16 offset   -- ip += offset
	OpJumpIfFalse            // u16 offset   -- if !truthy(peek(0)): ip += offset (does not pop)
	OpLoop                   // u16 offset   -- ip -= offset
	OpCall                   // u8 argCount  -- call callee below argCount args
	OpClosure                // u8 fnIdx, u8 upvalueCount, then upvalueCount*(u8 isLocal, u8 index)
	OpCloseUpvalue           // --           -- close upvalue at top of stack, then pop
	OpBuildList              // u8 n         -- pop n values, push new list
	OpIndexSubscr            // --           -- pop index, list; push list[index]
	OpStoreSubscr            // --           -- pop value, index, list; list[index]=value; push value
	OpReturn                 // --           -- return top of stack from the current frame
)

// Definition describes an Opcode's mnemonic and the byte width of each of
// its operands, used by Make, ReadOperands, and the disassembler.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpConstant:     {"OP_CONSTANT", []int{1}},
	OpNil:          {"OP_NIL", []int{}},
	OpTrue:         {"OP_TRUE", []int{}},
	OpFalse:        {"OP_FALSE", []int{}},
	OpPop:          {"OP_POP", []int{}},
	OpDup:          {"OP_DUP", []int{}},
	OpGetLocal:     {"OP_GET_LOCAL", []int{1}},
	OpSetLocal:     {"OP_SET_LOCAL", []int{1}},
	OpGetGlobal:    {"OP_GET_GLOBAL", []int{1}},
	OpDefineGlobal: {"OP_DEFINE_GLOBAL", []int{1}},
	OpSetGlobal:    {"OP_SET_GLOBAL", []int{1}},
	OpGetUpvalue:   {"OP_GET_UPVALUE", []int{1}},
	OpSetUpvalue:   {"OP_SET_UPVALUE", []int{1}},
	OpEqual:        {"OP_EQUAL", []int{}},
	OpGreater:      {"OP_GREATER", []int{}},
	OpLess:         {"OP_LESS", []int{}},
	OpAdd:          {"OP_ADD", []int{}},
	OpSubtract:     {"OP_SUBTRACT", []int{}},
	OpMultiply:     {"OP_MULTIPLY", []int{}},
	OpDivide:       {"OP_DIVIDE", []int{}},
	OpNot:          {"OP_NOT", []int{}},
	OpNegate:       {"OP_NEGATE", []int{}},
	OpPrint:        {"OP_PRINT", []int{}},
	OpJump:         {"OP_JUMP", []int{2}},
	OpJumpIfFalse:  {"OP_JUMP_IF_FALSE", []int{2}},
	OpLoop:         {"OP_LOOP", []int{2}},
	OpCall:         {"OP_CALL", []int{1}},
	OpClosure:      {"OP_CLOSURE", []int{1, 1}}, // trailing (isLocal, index) pairs are variable-length
	OpCloseUpvalue: {"OP_CLOSE_UPVALUE", []int{}},
	OpBuildList:    {"OP_BUILD_LIST", []int{1}},
	OpIndexSubscr:  {"OP_INDEX_SUBSCR", []int{}},
	OpStoreSubscr:  {"OP_STORE_SUBSCR", []int{}},
	OpReturn:       {"OP_RETURN", []int{}},
}

// Lookup returns the Definition for the provided opcode byte.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// lineRun is one run-length entry in a Chunk's line table: `count`
// consecutive instruction bytes all originate from source `line`.
type lineRun struct {
	line  int
	count int
}

// Chunk is a unit of compiled code: opcode bytes, a constant pool indexed by
// one-byte operands, and a run-length encoded line table.
type Chunk struct {
	Code      Instructions
	Constants []interface{} // the compiler stores value.Value entries and the VM reads them back as value.Value
	lines     []lineRun
}

// NewChunk returns an empty Chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends a single raw byte to the chunk, recording that it
// originated on the given source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.addLine(line)
}

func (c *Chunk) addLine(line int) {
	if len(c.lines) > 0 && c.lines[len(c.lines)-1].line == line {
		c.lines[len(c.lines)-1].count++
		return
	}
	c.lines = append(c.lines, lineRun{line: line, count: 1})
}

// AddConstant appends a value to the constant pool and returns its index.
func (c *Chunk) AddConstant(v interface{}) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// GetLine decodes the chunk's run-length line table to find the source line
// that produced the instruction at the given byte offset.
func (c *Chunk) GetLine(offset int) int {
	remaining := offset
	for _, run := range c.lines {
		if remaining < run.count {
			return run.line
		}
		remaining -= run.count
	}
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[len(c.lines)-1].line
}

// Make builds an instruction from the provided Opcode and operands, using
// the operand widths from its Definition. Operands wider than 255 for a
// 1-byte slot, or 65535 for a 2-byte slot, are a compiler bug, not a
// runtime condition, so Make does not validate them.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}

	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		if i >= len(def.OperandWidths) {
			break
		}
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}

	return instruction
}

// ReadUint16 reads a big-endian uint16 from the front of ins.
func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

// ReadOperands decodes the fixed-width operands described by def from the
// front of ins, returning the decoded values and the number of bytes read.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ins[offset])
		}
		offset += width
	}

	return operands, offset
}
