package classfile

import (
	"fmt"
	"unicode/utf16"
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag  uint8
	a, b uint16
	utf8 string
}

// constantPool is indexed from 1; slot 0 and the second slot of long and
// double entries hold the zero constant.
type constantPool []constant

// memberRef is a resolved Fieldref, Methodref or InterfaceMethodref.
type memberRef struct {
	owner string
	name  string
	desc  string
}

func readConstantPool(r *reader) (constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, parseErr(r.pos, ErrMalformed, "constant pool count is zero")
	}

	cp := make(constantPool, count)
	for i := 1; i < count; i++ {
		start := r.pos
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			raw := r.take(n)
			if r.err == nil {
				s, err := decodeModifiedUTF8(raw)
				if err != nil {
					return nil, parseErr(start, ErrMalformed, "constant pool entry %d: %v", i, err)
				}
				c.utf8 = s
			}
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType,
			tagDynamic, tagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case tagMethodHandle:
			c.a = uint16(r.u1())
			c.b = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, parseErr(start, ErrUnsupported, "constant pool entry %d has tag %d", i, tag)
		}
		if r.err != nil {
			return nil, r.err
		}
		cp[i] = c
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}
	return cp, nil
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8: NUL is the two
// bytes C0 80 and supplementary characters are surrogate pairs, each
// half encoded as three bytes. Unpaired surrogates become U+FFFD.
func decodeModifiedUTF8(b []byte) (string, error) {
	plain := true
	for _, c := range b {
		if c == 0 || c >= 0x80 {
			plain = false
			break
		}
	}
	if plain {
		return string(b), nil
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == 0:
			return "", fmt.Errorf("raw NUL at byte %d", i)
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= len(b) || b[i+1]&0xc0 != 0x80 {
				return "", fmt.Errorf("bad two-byte sequence at byte %d", i)
			}
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= len(b) || b[i+1]&0xc0 != 0x80 || b[i+2]&0xc0 != 0x80 {
				return "", fmt.Errorf("bad three-byte sequence at byte %d", i)
			}
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return "", fmt.Errorf("invalid lead byte %#x at byte %d", c, i)
		}
	}
	return string(utf16.Decode(units)), nil
}

func (cp constantPool) entry(idx uint16, want uint8) (constant, error) {
	if idx == 0 || int(idx) >= len(cp) {
		return constant{}, parseErr(0, ErrMalformed, "constant pool index %d out of range", idx)
	}
	c := cp[idx]
	if c.tag != want {
		return constant{}, parseErr(0, ErrMalformed, "constant pool entry %d has tag %d, want %d", idx, c.tag, want)
	}
	return c, nil
}

func (cp constantPool) utf8(idx uint16) (string, error) {
	c, err := cp.entry(idx, tagUtf8)
	if err != nil {
		return "", err
	}
	return c.utf8, nil
}

// className resolves a CONSTANT_Class to its internal name.
func (cp constantPool) className(idx uint16) (string, error) {
	c, err := cp.entry(idx, tagClass)
	if err != nil {
		return "", err
	}
	return cp.utf8(c.a)
}

func (cp constantPool) nameAndType(idx uint16) (string, string, error) {
	c, err := cp.entry(idx, tagNameAndType)
	if err != nil {
		return "", "", err
	}
	name, err := cp.utf8(c.a)
	if err != nil {
		return "", "", err
	}
	desc, err := cp.utf8(c.b)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// member resolves a field or method reference. Methodref and
// InterfaceMethodref are interchangeable for invocations since Java 8.
func (cp constantPool) member(idx uint16, field bool) (memberRef, error) {
	if idx == 0 || int(idx) >= len(cp) {
		return memberRef{}, parseErr(0, ErrMalformed, "constant pool index %d out of range", idx)
	}
	c := cp[idx]
	switch {
	case field && c.tag == tagFieldref:
	case !field && (c.tag == tagMethodref || c.tag == tagInterfaceMethodref):
	default:
		return memberRef{}, parseErr(0, ErrMalformed, "constant pool entry %d has tag %d, not a member reference", idx, c.tag)
	}
	owner, err := cp.className(c.a)
	if err != nil {
		return memberRef{}, err
	}
	name, desc, err := cp.nameAndType(c.b)
	if err != nil {
		return memberRef{}, err
	}
	return memberRef{owner: owner, name: name, desc: desc}, nil
}
