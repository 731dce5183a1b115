package testutil

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Access flags for generated classes, fields and methods.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccBridge     = 0x0040
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

// Opcodes emitted by the generated method bodies.
const (
	OpAload0          = 0x2a
	OpAload1          = 0x2b
	OpDup             = 0x59
	OpIconst1         = 0x04
	OpIadd            = 0x60
	OpPop             = 0x57
	OpReturn          = 0xb1
	OpAreturn         = 0xb0
	OpIreturn         = 0xac
	OpLdc             = 0x12
	OpGetStatic       = 0xb2
	OpPutStatic       = 0xb3
	OpGetField        = 0xb4
	OpPutField        = 0xb5
	OpInvokeVirtual   = 0xb6
	OpInvokeSpecial   = 0xb7
	OpInvokeStatic    = 0xb8
	OpInvokeInterface = 0xb9
	OpInvokeDynamic   = 0xba
	OpNew             = 0xbb
	OpAthrow          = 0xbf
	OpTableSwitch     = 0xaa
	OpLookupSwitch    = 0xab
	OpWide            = 0xc4
	OpIinc            = 0x84
)

type cpKey struct {
	tag  uint8
	a, b uint16
	s    string
}

// ClassBuilder assembles a minimal, decodable class file. Bodies are not
// verifiable bytecode; they only need to decode.
type ClassBuilder struct {
	name    string
	access  uint16
	pool    [][]byte
	index   map[cpKey]uint16
	fields  [][]byte
	methods []*MethodBuilder
}

// NewClass starts a class with the given internal name ("pkg/Name").
func NewClass(internalName string) *ClassBuilder {
	return &ClassBuilder{
		name:   internalName,
		access: AccPublic | AccFinal | AccSuper,
		pool:   [][]byte{nil},
		index:  make(map[cpKey]uint16),
	}
}

// Access overrides the class access flags.
func (b *ClassBuilder) Access(flags uint16) *ClassBuilder {
	b.access = flags
	return b
}

// Field declares a field.
func (b *ClassBuilder) Field(access uint16, name, desc string) *ClassBuilder {
	var buf bytes.Buffer
	put16(&buf, access)
	put16(&buf, b.utf8(name))
	put16(&buf, b.utf8(desc))
	put16(&buf, 0)
	b.fields = append(b.fields, buf.Bytes())
	return b
}

// Method declares a method with a Code attribute and returns its body
// builder. Abstract methods get no Code attribute.
func (b *ClassBuilder) Method(access uint16, name, desc string) *MethodBuilder {
	m := &MethodBuilder{class: b, access: access, name: name, desc: desc}
	b.methods = append(b.methods, m)
	return m
}

// DefaultCtor adds "<init>()V" calling the Object constructor.
func (b *ClassBuilder) DefaultCtor() *ClassBuilder {
	b.Method(AccPublic, "<init>", "()V").
		Emit(OpAload0).
		Invoke(OpInvokeSpecial, "java/lang/Object", "<init>", "()V").
		Emit(OpReturn)
	return b
}

// Bytes serializes the class file.
func (b *ClassBuilder) Bytes() []byte {
	this := b.class(b.name)
	super := b.class("java/lang/Object")
	methods := make([][]byte, len(b.methods))
	for i, m := range b.methods {
		methods[i] = m.bytes()
	}

	var buf bytes.Buffer
	put32(&buf, 0xCAFEBABE)
	put16(&buf, 0)
	put16(&buf, 52)
	put16(&buf, uint16(len(b.pool)))
	for _, e := range b.pool[1:] {
		buf.Write(e)
	}
	put16(&buf, b.access)
	put16(&buf, this)
	put16(&buf, super)
	put16(&buf, 0)
	put16(&buf, uint16(len(b.fields)))
	for _, f := range b.fields {
		buf.Write(f)
	}
	put16(&buf, uint16(len(methods)))
	for _, m := range methods {
		buf.Write(m)
	}
	put16(&buf, 0)
	return buf.Bytes()
}

func (b *ClassBuilder) intern(k cpKey, entry []byte) uint16 {
	if idx, ok := b.index[k]; ok {
		return idx
	}
	idx := uint16(len(b.pool))
	b.pool = append(b.pool, entry)
	b.index[k] = idx
	return idx
}

func (b *ClassBuilder) utf8(s string) uint16 {
	enc := ModifiedUTF8(s)
	var buf bytes.Buffer
	buf.WriteByte(1)
	put16(&buf, uint16(len(enc)))
	buf.Write(enc)
	return b.intern(cpKey{tag: 1, s: s}, buf.Bytes())
}

// ModifiedUTF8 encodes s the way javac writes CONSTANT_Utf8 entries.
func ModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xc0|byte(u>>6), 0x80|byte(u&0x3f))
		default:
			out = append(out, 0xe0|byte(u>>12), 0x80|byte(u>>6&0x3f), 0x80|byte(u&0x3f))
		}
	}
	return out
}

func (b *ClassBuilder) class(name string) uint16 {
	n := b.utf8(name)
	return b.intern(cpKey{tag: 7, a: n}, []byte{7, byte(n >> 8), byte(n)})
}

func (b *ClassBuilder) str(s string) uint16 {
	n := b.utf8(s)
	return b.intern(cpKey{tag: 8, a: n}, []byte{8, byte(n >> 8), byte(n)})
}

func (b *ClassBuilder) nameAndType(name, desc string) uint16 {
	n, d := b.utf8(name), b.utf8(desc)
	return b.intern(cpKey{tag: 12, a: n, b: d}, []byte{12, byte(n >> 8), byte(n), byte(d >> 8), byte(d)})
}

func (b *ClassBuilder) ref(tag uint8, owner, name, desc string) uint16 {
	c, nt := b.class(owner), b.nameAndType(name, desc)
	return b.intern(cpKey{tag: tag, a: c, b: nt}, []byte{tag, byte(c >> 8), byte(c), byte(nt >> 8), byte(nt)})
}

// MethodBuilder accumulates one method's bytecode.
type MethodBuilder struct {
	class  *ClassBuilder
	access uint16
	name   string
	desc   string
	code   bytes.Buffer
}

// Emit appends raw bytes to the body.
func (m *MethodBuilder) Emit(code ...byte) *MethodBuilder {
	m.code.Write(code)
	return m
}

// Len returns the current body length, for alignment-sensitive opcodes.
func (m *MethodBuilder) Len() int {
	return m.code.Len()
}

// Ldc pushes a string constant.
func (m *MethodBuilder) Ldc(s string) *MethodBuilder {
	idx := m.class.str(s)
	if idx > 0xff {
		panic("testutil: ldc index out of range")
	}
	return m.Emit(OpLdc, byte(idx))
}

// FieldInsn emits getfield, putfield, getstatic or putstatic.
func (m *MethodBuilder) FieldInsn(op byte, owner, name, desc string) *MethodBuilder {
	idx := m.class.ref(9, owner, name, desc)
	return m.Emit(op, byte(idx>>8), byte(idx))
}

// Get emits "this.name" on the class being built.
func (m *MethodBuilder) Get(name, desc string) *MethodBuilder {
	return m.Emit(OpAload0).FieldInsn(OpGetField, m.class.name, name, desc)
}

// Put emits "this.name = ..." on the class being built.
func (m *MethodBuilder) Put(name, desc string) *MethodBuilder {
	return m.Emit(OpAload0, OpAload1).FieldInsn(OpPutField, m.class.name, name, desc)
}

// Increment emits "this.name += 1" for an int field: get then put.
func (m *MethodBuilder) Increment(name string) *MethodBuilder {
	return m.Emit(OpAload0, OpDup).
		FieldInsn(OpGetField, m.class.name, name, "I").
		Emit(OpIconst1, OpIadd).
		FieldInsn(OpPutField, m.class.name, name, "I")
}

// Invoke emits an invocation. Interface invocations get their count and
// zero operand bytes.
func (m *MethodBuilder) Invoke(op byte, owner, name, desc string) *MethodBuilder {
	tag := uint8(10)
	if op == OpInvokeInterface {
		tag = 11
	}
	idx := m.class.ref(tag, owner, name, desc)
	m.Emit(op, byte(idx>>8), byte(idx))
	if op == OpInvokeInterface {
		m.Emit(1, 0)
	}
	return m
}

// Self emits an invokevirtual on the class being built.
func (m *MethodBuilder) Self(name, desc string) *MethodBuilder {
	return m.Emit(OpAload0).Invoke(OpInvokeVirtual, m.class.name, name, desc)
}

func (m *MethodBuilder) bytes() []byte {
	var buf bytes.Buffer
	put16(&buf, m.access)
	put16(&buf, m.class.utf8(m.name))
	put16(&buf, m.class.utf8(m.desc))
	if m.access&AccAbstract != 0 {
		put16(&buf, 0)
		return buf.Bytes()
	}
	codeName := m.class.utf8("Code")
	put16(&buf, 1)
	put16(&buf, codeName)
	code := m.code.Bytes()
	put32(&buf, uint32(12+len(code)))
	put16(&buf, 4)
	put16(&buf, 4)
	put32(&buf, uint32(len(code)))
	buf.Write(code)
	put16(&buf, 0)
	put16(&buf, 0)
	return buf.Bytes()
}

func put16(buf *bytes.Buffer, v uint16) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func put32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}
