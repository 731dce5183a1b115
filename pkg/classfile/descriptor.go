package classfile

import "strings"

// FieldType converts a field descriptor into the type string recorded on an
// attribute: the descriptor without its trailing ';'.
func FieldType(desc string) string {
	return strings.TrimSuffix(desc, ";")
}

// MethodTypes decodes a method descriptor into parameter types and return
// type. Reference types are "L<internal name>", base types their descriptor
// character, arrays their element type and a void return "V".
func MethodTypes(desc string) (args []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", parseErr(0, ErrMalformed, "method descriptor %q does not start with '('", desc)
	}
	i := 1
	args = []string{}
	for {
		if i >= len(desc) {
			return nil, "", parseErr(0, ErrMalformed, "method descriptor %q has no ')'", desc)
		}
		if desc[i] == ')' {
			i++
			break
		}
		t, next, err := scanType(desc, i)
		if err != nil {
			return nil, "", err
		}
		args = append(args, t)
		i = next
	}

	if i < len(desc) && desc[i] == 'V' {
		if i+1 != len(desc) {
			return nil, "", parseErr(0, ErrMalformed, "method descriptor %q has trailing data", desc)
		}
		return args, "V", nil
	}
	ret, next, err := scanType(desc, i)
	if err != nil {
		return nil, "", err
	}
	if next != len(desc) {
		return nil, "", parseErr(0, ErrMalformed, "method descriptor %q has trailing data", desc)
	}
	return args, ret, nil
}

// scanType reads one field type starting at i and returns it with the index
// just past it.
func scanType(desc string, i int) (string, int, error) {
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return "", 0, parseErr(0, ErrMalformed, "descriptor %q ends inside a type", desc)
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return desc[i : i+1], i + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end <= 1 {
			return "", 0, parseErr(0, ErrMalformed, "descriptor %q has an unterminated class type", desc)
		}
		return desc[i : i+end], i + end + 1, nil
	default:
		return "", 0, parseErr(0, ErrMalformed, "descriptor %q has invalid type character %q", desc, desc[i])
	}
}
