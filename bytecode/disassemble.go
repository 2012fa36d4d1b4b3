package bytecode

import (
	"bytes"
	"fmt"

	"lumen/value"
)

// Disassemble decodes the entire chunk into human-readable text, one
// instruction per line, prefixed with its byte offset and source line.
// Used by compiler tests that assert on disassembly output.
func (c *Chunk) Disassemble(name string) string {
	var out bytes.Buffer

	fmt.Fprintf(&out, "== %s ==\n", name)

	offset := 0
	for offset < len(c.Code) {
		offset = c.disassembleInstruction(&out, offset)
	}

	return out.String()
}

func (c *Chunk) disassembleInstruction(out *bytes.Buffer, offset int) int {
	fmt.Fprintf(out, "%04d ", offset)

	line := c.GetLine(offset)
	if offset > 0 && line == c.GetLine(offset-1) {
		fmt.Fprint(out, "   | ")
	} else {
		fmt.Fprintf(out, "%4d ", line)
	}

	op := Opcode(c.Code[offset])
	def, err := Lookup(byte(op))
	if err != nil {
		fmt.Fprintf(out, "ERROR: %s\n", err)
		return offset + 1
	}

	if op == OpClosure {
		return c.disassembleClosure(out, def, offset)
	}

	operands, read := ReadOperands(def, c.Code[offset+1:])
	fmt.Fprintln(out, c.fmtInstruction(def, operands, offset))

	return offset + 1 + read
}

// disassembleClosure prints OP_CLOSURE's fixed (function index) operand
// followed by one line per trailing (isLocal, index) upvalue descriptor,
// since that tail is not a fixed-width operand of the opcode itself.
func (c *Chunk) disassembleClosure(out *bytes.Buffer, def *Definition, offset int) int {
	fnIdx := int(c.Code[offset+1])
	upvalueCount := int(c.Code[offset+2])

	fmt.Fprintf(out, "%-16s %d %s\n", def.Name, fnIdx, c.constantSuffix(fnIdx))

	cursor := offset + 3
	for i := 0; i < upvalueCount; i++ {
		isLocal := c.Code[cursor]
		index := c.Code[cursor+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(out, "%04d      |                     %s %d\n", cursor, kind, index)
		cursor += 2
	}

	return cursor
}

func (c *Chunk) fmtInstruction(def *Definition, operands []int, offset int) string {
	switch len(def.OperandWidths) {
	case 0:
		return def.Name
	case 1:
		suffix := ""
		if def.Name == "OP_CONSTANT" || def.Name == "OP_GET_GLOBAL" ||
			def.Name == "OP_DEFINE_GLOBAL" || def.Name == "OP_SET_GLOBAL" {
			suffix = " " + c.constantSuffix(operands[0])
		}
		return fmt.Sprintf("%-16s %d%s", def.Name, operands[0], suffix)
	case 2:
		return fmt.Sprintf("%-16s %d %d", def.Name, operands[0], operands[1])
	}
	_ = offset
	return fmt.Sprintf("ERROR: unhandled operand count for %s", def.Name)
}

func (c *Chunk) constantSuffix(idx int) string {
	if idx < 0 || idx >= len(c.Constants) {
		return ""
	}
	v, ok := c.Constants[idx].(value.Value)
	if !ok {
		return fmt.Sprintf("%v", c.Constants[idx])
	}
	return fmt.Sprintf("'%s'", v.String())
}
