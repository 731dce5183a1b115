package classfile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/panbanda/jcohesion/internal/testutil"
	"github.com/panbanda/jcohesion/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func methodByName(t *testing.T, cls *models.ClassModel, name string) models.Method {
	t.Helper()
	for _, m := range cls.Methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s not found in %s", name, cls.ID)
	return models.Method{}
}

func TestParse_Foo(t *testing.T) {
	cls, err := Parse(testutil.Foo())
	require.NoError(t, err)

	assert.Equal(t, "Foo", cls.ID)
	assert.Equal(t, "", cls.Package)
	require.Len(t, cls.Attributes, 1)
	assert.Equal(t, models.Attribute{Name: "num", Type: "I"}, cls.Attributes[0])
	require.Len(t, cls.Methods, 3)

	ctor := methodByName(t, cls, "<init>")
	assert.True(t, ctor.Ctor)
	assert.Empty(t, ctor.Args)
	assert.Equal(t, "V", ctor.Return)
	assert.Equal(t, []models.Operation{
		{Kind: models.OpCall, Target: "java.lang.Object.<init>", Args: []string{}},
	}, ctor.Ops)

	one := methodByName(t, cls, "methodOne")
	assert.False(t, one.Ctor)
	assert.True(t, one.Public)
	assert.Equal(t, models.VisibilityPublic, one.Visibility)
	assert.Equal(t, []string{"Ljava/lang/String", "Z"}, one.Args)
	assert.Equal(t, "(Ljava/lang/String;Z)V", one.Desc)
	assert.Equal(t, []models.Operation{
		{Kind: models.OpGet, Target: "num"},
		{Kind: models.OpPut, Target: "num"},
		{Kind: models.OpCall, Target: "Foo.methodTwo", Args: []string{"Ljava/lang/String", "Z"}},
	}, one.Ops)
}

func TestParse_BarStaticAccessIsQualified(t *testing.T) {
	cls, err := Parse(testutil.Bar())
	require.NoError(t, err)
	require.Len(t, cls.Methods, 5)

	ctor := methodByName(t, cls, "<init>")
	require.Len(t, ctor.Ops, 4)
	assert.Equal(t, models.Operation{Kind: models.OpPutStatic, Target: "Bar.singleton"}, ctor.Ops[3])

	getKey := methodByName(t, cls, "getKey")
	assert.Equal(t, []models.OpKind{models.OpPutStatic, models.OpCall, models.OpGet},
		kinds(getKey.Ops))
	assert.Equal(t, "java.lang.String.length", getKey.Ops[1].Target)

	clinit := methodByName(t, cls, "<clinit>")
	assert.True(t, clinit.Ctor)
	assert.True(t, clinit.Static)
	assert.Equal(t, models.VisibilityDefault, clinit.Visibility)

	var static []string
	for _, a := range cls.Attributes {
		if a.Static {
			static = append(static, a.Name)
		}
	}
	assert.Equal(t, []string{"singleton", "NAME"}, static)
	assert.Equal(t, "Ljava/lang/Object", cls.Attributes[0].Type)
	assert.True(t, cls.Attributes[3].Final)
}

func TestParse_PublicStaticFromOtherClass(t *testing.T) {
	cls, err := Parse(testutil.ClassAccessingPublicField())
	require.NoError(t, err)
	assert.Equal(t, "org.acme.samples", cls.Package)
	assert.Equal(t, "ClassAccessingPublicField", cls.ID)

	test := methodByName(t, cls, "test")
	require.Len(t, test.Ops, 1)
	assert.Equal(t, "org.acme.samples.ClassWithPublicField.NAME", test.Ops[0].Target)

	_, own := cls.OwnsStatic(test.Ops[0].Target)
	assert.False(t, own)

	clinit := methodByName(t, cls, "<clinit>")
	name, own := cls.OwnsStatic(clinit.Ops[0].Target)
	assert.True(t, own)
	assert.Equal(t, "NAME", name)
}

func TestParse_TypesOfMethods(t *testing.T) {
	cls, err := Parse(testutil.MethodsWithDiffParamTypes())
	require.NoError(t, err)

	tests := []struct {
		method string
		args   []string
		ret    string
	}{
		{"methodOne", []string{"Ljava/lang/Object"}, "D"},
		{"methodTwo", []string{"J"}, "V"},
		{"methodThree", []string{"Ljava/lang/String", "I"}, "C"},
		{"methodFour", []string{"Ljava/util/List"}, "I"},
		{"methodFive", []string{"Ljava/lang/Integer"}, "I"},
		{"methodSix", []string{"Ljava/sql/Timestamp"}, "Ljava/util/Date"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m := methodByName(t, cls, tt.method)
			assert.Equal(t, tt.args, m.Args)
			assert.Equal(t, tt.ret, m.Return)
		})
	}

	four := methodByName(t, cls, "methodFour")
	require.Len(t, four.Ops, 1)
	assert.Equal(t, "java.util.List.size", four.Ops[0].Target)
	assert.Empty(t, methodByName(t, cls, "methodFive").Ops)
}

func TestParse_Excluded(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"interface", testutil.Interface()},
		{"anonymous", testutil.AnonymousClass()},
		{"closure", testutil.NewClass("org/example/Aspect$AjcClosure12").DefaultCtor().Bytes()},
		{"enum", testutil.NewClass("org/example/Color").Access(testutil.AccPublic | testutil.AccEnum).Bytes()},
		{"annotation", testutil.NewClass("org/example/Marker").
			Access(testutil.AccInterface | testutil.AccAnnotation | testutil.AccAbstract).Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := Parse(tt.data)
			assert.Nil(t, cls)
			assert.ErrorIs(t, err, ErrExcluded)
		})
	}
}

func TestParse_NamedInnerClassIsKept(t *testing.T) {
	cls, err := Parse(testutil.NewClass("org/example/Outer$Inner").DefaultCtor().Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Outer$Inner", cls.ID)
	assert.Equal(t, "org.example", cls.Package)
}

func TestParse_SyntheticMethodDropped(t *testing.T) {
	b := testutil.NewClass("Lambda").Field(testutil.AccPrivate, "x", "I").DefaultCtor()
	b.Method(testutil.AccPrivate|testutil.AccStatic|testutil.AccSynthetic, "lambda$run$0", "()V").
		Get("x", "I").
		Emit(testutil.OpReturn)
	b.Method(testutil.AccPublic|testutil.AccBridge, "compareTo", "(Ljava/lang/Object;)I").
		Emit(testutil.OpIreturn)

	cls, err := Parse(b.Bytes())
	require.NoError(t, err)
	require.Len(t, cls.Methods, 2)
	assert.Equal(t, "<init>", cls.Methods[0].Name)
	assert.True(t, cls.Methods[1].Bridge)
}

func TestParse_AbstractMethodHasNoOps(t *testing.T) {
	b := testutil.NewClass("Base").Access(testutil.AccPublic | testutil.AccAbstract).DefaultCtor()
	b.Method(testutil.AccProtected|testutil.AccAbstract, "run", "()V")

	cls, err := Parse(b.Bytes())
	require.NoError(t, err)
	run := methodByName(t, cls, "run")
	assert.True(t, run.Abstract)
	assert.Equal(t, models.VisibilityProtected, run.Visibility)
	assert.Empty(t, run.Ops)
}

func TestParse_SwitchesAndWide(t *testing.T) {
	b := testutil.NewClass("Switches").Field(testutil.AccPrivate, "n", "I").DefaultCtor()
	m := b.Method(testutil.AccPublic, "pick", "(I)I")
	m.Emit(0x1b, 0x00, 0x00) // iload_1, nop, nop
	// tableswitch at pc 3 needs no padding; low 0, high 1.
	m.Emit(testutil.OpTableSwitch,
		0, 0, 0, 0x10, // default
		0, 0, 0, 0, // low
		0, 0, 0, 1, // high
		0, 0, 0, 0x10,
		0, 0, 0, 0x10)
	m.Get("n", "I")
	for m.Len()%4 != 3 {
		m.Emit(0x00)
	}
	m.Emit(0x1b)
	// lookupswitch at pc%4 == 0 needs three padding bytes.
	m.Emit(testutil.OpLookupSwitch, 0, 0, 0,
		0, 0, 0, 0x10, // default
		0, 0, 0, 1, // npairs
		0, 0, 0, 7, 0, 0, 0, 0x10)
	m.Emit(testutil.OpWide, testutil.OpIinc, 0, 1, 0, 5)
	m.Emit(testutil.OpWide, 0x15, 1, 0) // wide iload
	m.Get("n", "I").Emit(testutil.OpIreturn)

	cls, err := Parse(b.Bytes())
	require.NoError(t, err)
	pick := methodByName(t, cls, "pick")
	assert.Equal(t, []models.Operation{
		{Kind: models.OpGet, Target: "n"},
		{Kind: models.OpGet, Target: "n"},
	}, pick.Ops)
}

func TestParse_InvokeDynamicIsNotACall(t *testing.T) {
	b := testutil.NewClass("Indy").DefaultCtor()
	b.Method(testutil.AccPublic, "run", "()V").
		Emit(testutil.OpInvokeDynamic, 0, 1, 0, 0).
		Emit(testutil.OpReturn)

	cls, err := Parse(b.Bytes())
	require.NoError(t, err)
	assert.Empty(t, methodByName(t, cls, "run").Ops)
}

func TestParse_Malformed(t *testing.T) {
	valid := testutil.Foo()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"bad magic", []byte{0xCA, 0xFE, 0xBA, 0xBF, 0, 0, 0, 52}, ErrMalformed},
		{"truncated header", valid[:9], ErrTruncated},
		{"truncated body", valid[:len(valid)/2], ErrTruncated},
		{"trailing bytes", append(append([]byte{}, valid...), 0), ErrMalformed},
		{"bad opcode", func() []byte {
			b := testutil.NewClass("Bad").DefaultCtor()
			b.Method(testutil.AccPublic, "x", "()V").Emit(0xfe)
			return b.Bytes()
		}(), ErrUnsupported},
		{"truncated operand", func() []byte {
			b := testutil.NewClass("Bad").DefaultCtor()
			b.Method(testutil.AccPublic, "x", "()V").Emit(testutil.OpGetField, 0)
			return b.Bytes()
		}(), ErrTruncated},
		{"operand points outside pool", func() []byte {
			b := testutil.NewClass("Bad").DefaultCtor()
			b.Method(testutil.AccPublic, "x", "()V").Emit(testutil.OpGetField, 0x7f, 0x7f)
			return b.Bytes()
		}(), ErrMalformed},
		{"bad descriptor", func() []byte {
			b := testutil.NewClass("Bad")
			b.Method(testutil.AccPublic, "x", "(Q)V").Emit(testutil.OpReturn)
			return b.Bytes()
		}(), ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := Parse(tt.data)
			assert.Nil(t, cls)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
		})
	}
}

func TestParse_NeverPanicsOnPrefixes(t *testing.T) {
	data := testutil.Bar()
	for i := 0; i < len(data); i++ {
		assert.NotPanics(t, func() {
			_, _ = Parse(data[:i])
		})
	}
}

func TestParse_ReturnsIndependentModels(t *testing.T) {
	data := testutil.Foo()
	a, err := Parse(data)
	require.NoError(t, err)
	b, err := Parse(data)
	require.NoError(t, err)

	a.Methods[1].Ops[0].Target = "changed"
	assert.Equal(t, "num", b.Methods[1].Ops[0].Target)
}

func kinds(ops []models.Operation) []models.OpKind {
	out := make([]models.OpKind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind
	}
	return out
}

func TestDecodeModifiedUTF8(t *testing.T) {
	tests := []struct {
		name  string
		in    []byte
		want  string
		lossy bool
	}{
		{"ascii", []byte("count"), "count", false},
		{"empty", nil, "", false},
		{"two-byte", []byte{'c', 'a', 'f', 0xc3, 0xa9}, "café", false},
		{"encoded nul", []byte{'a', 0xc0, 0x80, 'b'}, "a\x00b", false},
		{"three-byte", []byte{0xe2, 0x82, 0xac}, "€", false},
		{"surrogate pair", []byte{0xed, 0xa0, 0xb5, 0xed, 0xb1, 0xa5}, "\U0001D465", false},
		{"lone surrogate", []byte{0xed, 0xa0, 0xb5, 'x'}, "\uFFFDx", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeModifiedUTF8(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if !tt.lossy {
				assert.Equal(t, tt.in, testutil.ModifiedUTF8(got), "round trip")
			}
		})
	}
}

func TestDecodeModifiedUTF8_Invalid(t *testing.T) {
	for name, in := range map[string][]byte{
		"raw nul":          {'a', 0, 'b'},
		"four-byte form":   {0xf0, 0x9d, 0x91, 0xa5},
		"cut two-byte":     {'a', 0xc3},
		"bad continuation": {0xe2, 0x41, 0xac},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeModifiedUTF8(in)
			assert.Error(t, err)
		})
	}
}

func TestParse_NonASCIINames(t *testing.T) {
	b := testutil.NewClass("org/acme/Größe").DefaultCtor().
		Field(testutil.AccPrivate, "café", "I").
		Field(testutil.AccPrivate, "\U0001D465", "I").
		Field(testutil.AccPrivate, "a\x00b", "I")
	b.Method(testutil.AccPublic, "summe", "()V").
		Get("café", "I").Get("\U0001D465", "I").Get("a\x00b", "I").Emit(testutil.OpReturn)

	cls, err := Parse(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "Größe", cls.ID)
	assert.Equal(t, "org.acme", cls.Package)
	require.Len(t, cls.Attributes, 3)
	assert.Equal(t, "café", cls.Attributes[0].Name)
	assert.Equal(t, "\U0001D465", cls.Attributes[1].Name)
	assert.Equal(t, "a\x00b", cls.Attributes[2].Name)

	sum := methodByName(t, cls, "summe")
	assert.Equal(t, []models.Operation{
		{Kind: models.OpGet, Target: "café"},
		{Kind: models.OpGet, Target: "\U0001D465"},
		{Kind: models.OpGet, Target: "a\x00b"},
	}, sum.Ops)
}

func TestParse_InvalidUtf8Constant(t *testing.T) {
	b := testutil.NewClass("Bad").DefaultCtor().Field(testutil.AccPrivate, "zqzq", "I")
	data := b.Bytes()
	at := bytes.Index(data, []byte("zqzq"))
	require.Positive(t, at)
	data[at] = 0xff

	cls, err := Parse(data)
	assert.Nil(t, cls)
	assert.ErrorIs(t, err, ErrMalformed)
}
