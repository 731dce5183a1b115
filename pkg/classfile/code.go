package classfile

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/panbanda/jcohesion/pkg/models"
)

const (
	opTableSwitch     = 0xaa
	opLookupSwitch    = 0xab
	opGetStatic       = 0xb2
	opPutStatic       = 0xb3
	opGetField        = 0xb4
	opPutField        = 0xb5
	opInvokeVirtual   = 0xb6
	opInvokeSpecial   = 0xb7
	opInvokeStatic    = 0xb8
	opInvokeInterface = 0xb9
	opWide            = 0xc4
	opIinc            = 0x84
)

const (
	operandsUnknown  = -1
	operandsVariable = -2
)

// operandLen holds the operand byte count following each opcode.
var operandLen = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = operandsUnknown
	}
	set := func(from, to int, n int8) {
		for op := from; op <= to; op++ {
			t[op] = n
		}
	}
	set(0x00, 0x0f, 0) // nop .. dconst_1
	set(0x10, 0x10, 1) // bipush
	set(0x11, 0x11, 2) // sipush
	set(0x12, 0x12, 1) // ldc
	set(0x13, 0x14, 2) // ldc_w, ldc2_w
	set(0x15, 0x19, 1) // xload
	set(0x1a, 0x35, 0) // xload_n, array loads
	set(0x36, 0x3a, 1) // xstore
	set(0x3b, 0x83, 0) // xstore_n, array stores, stack, arithmetic
	set(0x84, 0x84, 2) // iinc
	set(0x85, 0x98, 0) // conversions, comparisons
	set(0x99, 0xa8, 2) // if*, goto, jsr
	set(0xa9, 0xa9, 1) // ret
	set(0xaa, 0xab, operandsVariable)
	set(0xac, 0xb1, 0) // returns
	set(0xb2, 0xb8, 2) // field access, invokevirtual/special/static
	set(0xb9, 0xba, 4) // invokeinterface, invokedynamic
	set(0xbb, 0xbb, 2) // new
	set(0xbc, 0xbc, 1) // newarray
	set(0xbd, 0xbd, 2) // anewarray
	set(0xbe, 0xbf, 0) // arraylength, athrow
	set(0xc0, 0xc1, 2) // checkcast, instanceof
	set(0xc2, 0xc3, 0) // monitorenter, monitorexit
	t[opWide] = operandsVariable
	set(0xc5, 0xc5, 3) // multianewarray
	set(0xc6, 0xc7, 2) // ifnull, ifnonnull
	set(0xc8, 0xc9, 4) // goto_w, jsr_w
	return t
}()

// decodeOps scans a Code attribute's bytecode once, front to back, and
// returns the field accesses and invocations in occurrence order.
// base is the offset of code within the class data, for error reporting.
func decodeOps(code []byte, base int, cp constantPool) ([]models.Operation, error) {
	ops := []models.Operation{}
	pc := 0
	for pc < len(code) {
		op := code[pc]
		n := int(operandLen[op])
		switch n {
		case operandsUnknown:
			return nil, parseErr(base+pc, ErrUnsupported, "opcode 0x%02x", op)
		case operandsVariable:
			var err error
			n, err = variableOperands(code, pc)
			if err != nil {
				return nil, parseErr(base+pc, err, "opcode 0x%02x operands", op)
			}
		}
		if pc+1+n > len(code) {
			return nil, parseErr(base+pc, ErrTruncated, "opcode 0x%02x needs %d operand bytes", op, n)
		}

		switch op {
		case opGetField, opPutField, opGetStatic, opPutStatic:
			idx := binary.BigEndian.Uint16(code[pc+1:])
			ref, err := cp.member(idx, true)
			if err != nil {
				return nil, withOffset(err, base+pc)
			}
			ops = append(ops, fieldOp(op, ref))
		case opInvokeVirtual, opInvokeSpecial, opInvokeStatic, opInvokeInterface:
			idx := binary.BigEndian.Uint16(code[pc+1:])
			ref, err := cp.member(idx, false)
			if err != nil {
				return nil, withOffset(err, base+pc)
			}
			args, _, err := MethodTypes(ref.desc)
			if err != nil {
				return nil, withOffset(err, base+pc)
			}
			ops = append(ops, models.Operation{
				Kind:   models.OpCall,
				Target: dotted(ref.owner) + "." + ref.name,
				Args:   args,
			})
		}
		pc += 1 + n
	}
	return ops, nil
}

func fieldOp(op byte, ref memberRef) models.Operation {
	switch op {
	case opGetField:
		return models.Operation{Kind: models.OpGet, Target: ref.name}
	case opPutField:
		return models.Operation{Kind: models.OpPut, Target: ref.name}
	case opGetStatic:
		return models.Operation{Kind: models.OpGetStatic, Target: QualifiedName(ref.owner, ref.name)}
	default:
		return models.Operation{Kind: models.OpPutStatic, Target: QualifiedName(ref.owner, ref.name)}
	}
}

// variableOperands returns the operand length of tableswitch, lookupswitch
// and wide at pc.
func variableOperands(code []byte, pc int) (int, error) {
	op := code[pc]
	if op == opWide {
		if pc+1 >= len(code) {
			return 0, ErrTruncated
		}
		if code[pc+1] == opIinc {
			return 5, nil
		}
		return 3, nil
	}

	// Both switches pad to a four byte boundary relative to the code start.
	pad := (4 - (pc+1)%4) % 4
	head := pc + 1 + pad
	if head+8 > len(code) {
		return 0, ErrTruncated
	}
	if op == opTableSwitch {
		if head+12 > len(code) {
			return 0, ErrTruncated
		}
		low := int32(binary.BigEndian.Uint32(code[head+4:]))
		high := int32(binary.BigEndian.Uint32(code[head+8:]))
		if high < low {
			return 0, ErrMalformed
		}
		count := int64(high) - int64(low) + 1
		if count > int64(len(code)) {
			return 0, ErrTruncated
		}
		return pad + 12 + int(count)*4, nil
	}
	pairs := int32(binary.BigEndian.Uint32(code[head+4:]))
	if pairs < 0 {
		return 0, ErrMalformed
	}
	if int64(pairs) > int64(len(code)) {
		return 0, ErrTruncated
	}
	return pad + 8 + int(pairs)*8, nil
}

// QualifiedName joins an owner's internal name and a member name with dots.
func QualifiedName(owner, name string) string {
	return dotted(owner) + "." + name
}

func dotted(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

func withOffset(err error, offset int) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Offset == 0 {
		pe.Offset = offset
	}
	return err
}
