// Package classfile decodes compiled JVM classes into structural models.
package classfile

import (
	"regexp"
	"strings"

	"github.com/panbanda/jcohesion/pkg/models"
)

const magic = 0xCAFEBABE

// Access flags shared by classes, fields and methods.
const (
	accPublic     = 0x0001
	accPrivate    = 0x0002
	accProtected  = 0x0004
	accStatic     = 0x0008
	accFinal      = 0x0010
	accBridge     = 0x0040
	accInterface  = 0x0200
	accAbstract   = 0x0400
	accSynthetic  = 0x1000
	accAnnotation = 0x2000
	accEnum       = 0x4000
	accModule     = 0x8000
)

var (
	anonymousClass = regexp.MustCompile(`^.+\$[0-9]+$`)
	closureClass   = regexp.MustCompile(`^.+\$AjcClosure[0-9]+$`)
)

// Parse decodes one class file. Classes that never take part in cohesion
// analysis yield ErrExcluded; malformed input yields a *ParseError.
func Parse(data []byte) (*models.ClassModel, error) {
	r := newReader(data)
	if m := r.u4(); r.err != nil {
		return nil, r.err
	} else if m != magic {
		return nil, parseErr(0, ErrMalformed, "bad magic 0x%08x", m)
	}
	r.skip(4) // minor, major

	cp, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	access := r.u2()
	thisIdx := r.u2()
	r.skip(2) // super_class
	ifaces := int(r.u2())
	r.skip(2 * ifaces)
	if r.err != nil {
		return nil, r.err
	}

	internal, err := cp.className(thisIdx)
	if err != nil {
		return nil, withOffset(err, r.pos)
	}
	if excluded(access, internal) {
		return nil, ErrExcluded
	}

	cls := &models.ClassModel{
		Attributes: []models.Attribute{},
		Methods:    []models.Method{},
	}
	cls.Package, cls.ID = splitName(internal)

	if err := readFields(r, cp, cls); err != nil {
		return nil, err
	}
	if err := readMethods(r, cp, cls); err != nil {
		return nil, err
	}
	if err := skipAttributes(r); err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, parseErr(r.pos, ErrMalformed, "%d trailing bytes", r.remaining())
	}
	return cls, nil
}

func excluded(access uint16, internal string) bool {
	if access&(accInterface|accAnnotation|accEnum|accModule) != 0 {
		return true
	}
	return anonymousClass.MatchString(internal) || closureClass.MatchString(internal)
}

// splitName turns "org/acme/Foo" into ("org.acme", "Foo").
func splitName(internal string) (pkg, id string) {
	i := strings.LastIndexByte(internal, '/')
	if i < 0 {
		return "", internal
	}
	return dotted(internal[:i]), internal[i+1:]
}

func readFields(r *reader, cp constantPool, cls *models.ClassModel) error {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		access := r.u2()
		nameIdx := r.u2()
		descIdx := r.u2()
		if err := skipAttributes(r); err != nil {
			return err
		}
		name, err := cp.utf8(nameIdx)
		if err != nil {
			return withOffset(err, r.pos)
		}
		desc, err := cp.utf8(descIdx)
		if err != nil {
			return withOffset(err, r.pos)
		}
		cls.Attributes = append(cls.Attributes, models.Attribute{
			Name:   name,
			Type:   FieldType(desc),
			Public: access&accPublic != 0,
			Static: access&accStatic != 0,
			Final:  access&accFinal != 0,
		})
	}
	return r.err
}

func readMethods(r *reader, cp constantPool, cls *models.ClassModel) error {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		start := r.pos
		access := r.u2()
		nameIdx := r.u2()
		descIdx := r.u2()
		if r.err != nil {
			return r.err
		}
		name, err := cp.utf8(nameIdx)
		if err != nil {
			return withOffset(err, start)
		}
		desc, err := cp.utf8(descIdx)
		if err != nil {
			return withOffset(err, start)
		}
		args, ret, err := MethodTypes(desc)
		if err != nil {
			return withOffset(err, start)
		}

		ops, err := readMethodAttributes(r, cp)
		if err != nil {
			return err
		}

		// Synthetic bodies are decoded to keep the scan aligned and to
		// validate them, but the methods themselves are not recorded.
		if access&accSynthetic != 0 {
			continue
		}
		cls.Methods = append(cls.Methods, models.Method{
			Name:       name,
			Desc:       desc,
			Ctor:       name == "<init>" || name == "<clinit>",
			Static:     access&accStatic != 0,
			Abstract:   access&accAbstract != 0,
			Public:     access&accPublic != 0,
			Bridge:     access&accBridge != 0,
			Visibility: visibility(access),
			Args:       args,
			Return:     ret,
			Ops:        ops,
		})
	}
	return r.err
}

func visibility(access uint16) models.Visibility {
	switch {
	case access&accPublic != 0:
		return models.VisibilityPublic
	case access&accProtected != 0:
		return models.VisibilityProtected
	case access&accPrivate != 0:
		return models.VisibilityPrivate
	default:
		return models.VisibilityDefault
	}
}

// readMethodAttributes walks a method's attributes and decodes its Code
// attribute, if any.
func readMethodAttributes(r *reader, cp constantPool) ([]models.Operation, error) {
	ops := []models.Operation{}
	count := int(r.u2())
	for i := 0; i < count; i++ {
		start := r.pos
		nameIdx := r.u2()
		length := int(r.u4())
		body := r.take(length)
		if r.err != nil {
			return nil, r.err
		}
		name, err := cp.utf8(nameIdx)
		if err != nil {
			return nil, withOffset(err, start)
		}
		if name != "Code" {
			continue
		}
		decoded, err := decodeCode(body, start+6, cp)
		if err != nil {
			return nil, err
		}
		ops = append(ops, decoded...)
	}
	return ops, r.err
}

// decodeCode parses the Code attribute body and decodes its bytecode.
func decodeCode(body []byte, base int, cp constantPool) ([]models.Operation, error) {
	cr := newReader(body)
	cr.skip(4) // max_stack, max_locals
	codeLen := int(cr.u4())
	codeStart := cr.pos
	code := cr.take(codeLen)
	exceptions := int(cr.u2())
	cr.skip(8 * exceptions)
	if err := skipAttributes(cr); err != nil {
		return nil, withOffset(err, base+cr.pos)
	}
	if cr.err != nil {
		return nil, withOffset(cr.err, base+cr.pos)
	}
	if cr.remaining() != 0 {
		return nil, parseErr(base+cr.pos, ErrMalformed, "Code attribute has %d trailing bytes", cr.remaining())
	}
	return decodeOps(code, base+codeStart, cp)
}

func skipAttributes(r *reader) error {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		r.skip(2)
		r.skip(int(r.u4()))
		if r.err != nil {
			return r.err
		}
	}
	return r.err
}
