package testutil

// Fixture class files mirroring the small reference classes used to pin
// metric values. Each function returns the bytes javac would produce for the
// field accesses and invocations of the class; other instructions are
// omitted or reduced.

const (
	objectDesc = "Ljava/lang/Object;"
	stringDesc = "Ljava/lang/String;"
)

// Foo is:
//
//	public final class Foo {
//	    private int num;
//	    public void methodOne(String txt, boolean opt) { this.num += 1; this.methodTwo(txt, opt); }
//	    public void methodTwo(String str, boolean opt) { this.num += 1; this.methodOne(str, opt); }
//	}
func Foo() []byte {
	b := NewClass("Foo").Field(AccPrivate, "num", "I").DefaultCtor()
	b.Method(AccPublic, "methodOne", "(Ljava/lang/String;Z)V").
		Increment("num").
		Self("methodTwo", "(Ljava/lang/String;Z)V").
		Emit(OpReturn)
	b.Method(AccPublic, "methodTwo", "(Ljava/lang/String;Z)V").
		Increment("num").
		Self("methodOne", "(Ljava/lang/String;Z)V").
		Emit(OpReturn)
	return b.Bytes()
}

// Bar has two final instance fields, a mutable static and a compile-time
// constant that is inlined at every use.
func Bar() []byte {
	b := NewClass("Bar").
		Field(AccPrivate|AccFinal, "key", objectDesc).
		Field(AccPrivate|AccFinal, "value", objectDesc).
		Field(AccPrivate|AccStatic, "singleton", stringDesc).
		Field(AccPrivate|AccStatic|AccFinal, "NAME", stringDesc)
	b.Method(AccPublic, "<init>", "(Ljava/lang/Object;Ljava/lang/Object;)V").
		Emit(OpAload0).
		Invoke(OpInvokeSpecial, "java/lang/Object", "<init>", "()V").
		Put("key", objectDesc).
		Put("value", objectDesc).
		Ldc("hi").
		FieldInsn(OpPutStatic, "Bar", "singleton", stringDesc).
		Emit(OpReturn)
	b.Method(AccPublic, "getKey", "()Ljava/lang/Object;").
		Ldc("bye").
		FieldInsn(OpPutStatic, "Bar", "singleton", stringDesc).
		Ldc("hey").
		Invoke(OpInvokeVirtual, "java/lang/String", "length", "()I").
		Emit(OpPop).
		Get("key", objectDesc).
		Emit(OpAreturn)
	b.Method(AccPublic, "getValue", "()Ljava/lang/Object;").
		Ldc("hey").
		Invoke(OpInvokeVirtual, "java/lang/String", "length", "()I").
		Emit(OpPop).
		Get("value", objectDesc).
		Emit(OpAreturn)
	b.Method(AccPublic, "setValue", "(Ljava/lang/Object;)Ljava/lang/Object;").
		Invoke(OpInvokeSpecial, "java/lang/UnsupportedOperationException", "<init>", "(Ljava/lang/String;)V").
		Emit(OpAthrow)
	b.Method(AccStatic, "<clinit>", "()V").
		Ldc("").
		FieldInsn(OpPutStatic, "Bar", "singleton", stringDesc).
		Emit(OpReturn)
	return b.Bytes()
}

// MethodsWithDiffParamTypes has one int field shared by three of its six
// methods, each method taking a different kind of parameter.
func MethodsWithDiffParamTypes() []byte {
	b := NewClass("MethodsWithDiffParamTypes").Field(AccPrivate, "num", "I").DefaultCtor()
	b.Method(AccPublic, "methodOne", "(Ljava/lang/Object;)D").
		Increment("num").
		Get("num", "I").
		Emit(OpReturn)
	b.Method(AccPublic, "methodTwo", "(J)V").
		Increment("num").
		Emit(OpReturn)
	b.Method(AccPublic, "methodThree", "(Ljava/lang/String;I)C").
		Increment("num").
		Emit(OpAload1).
		Get("num", "I").
		Invoke(OpInvokeVirtual, "java/lang/String", "charAt", "(I)C").
		Emit(OpIreturn)
	b.Method(AccPublic, "methodFour", "(Ljava/util/List;)I").
		Emit(OpAload1).
		Invoke(OpInvokeInterface, "java/util/List", "size", "()I").
		Emit(OpIreturn)
	b.Method(AccPublic, "methodFive", "([Ljava/lang/Integer;)[I").
		Emit(OpAload1, 0xbe, 0xbc, 10, OpAreturn) // arraylength, newarray int
	b.Method(AccPublic, "methodSix", "(Ljava/sql/Timestamp;)Ljava/util/Date;").
		Emit(OpAload1).
		Invoke(OpInvokeVirtual, "java/sql/Timestamp", "getTime", "()J").
		Invoke(OpInvokeSpecial, "java/util/Date", "<init>", "(J)V").
		Emit(OpAreturn)
	return b.Bytes()
}

// NoMethods declares a single field and only the implicit constructor.
func NoMethods() []byte {
	return NewClass("NoMethods").Field(AccPrivate, "num", "I").DefaultCtor().Bytes()
}

// WithoutAttributes declares methods but no fields.
func WithoutAttributes() []byte {
	b := NewClass("WithoutAttributes").DefaultCtor()
	b.Method(AccPublic, "methodOne", "(I)I").
		Emit(OpIreturn)
	b.Method(AccPublic, "methodTwo", "()Ljava/lang/String;").
		Ldc("").
		Emit(OpAreturn)
	return b.Bytes()
}

// IndirectlyRelatedPairs chains four methods through four int fields so
// that every method reaches every other one only transitively.
func IndirectlyRelatedPairs() []byte {
	const self = "IndirectlyRelatedPairs"
	b := NewClass(self).
		Field(0, "a", "I").
		Field(0, "b", "I").
		Field(0, "c", "I").
		Field(0, "d", "I")
	b.Method(AccPublic, "<init>", "(I)V").
		Emit(OpAload0).
		Invoke(OpInvokeSpecial, "java/lang/Object", "<init>", "()V").
		Get("a", "I").Get("d", "I").Emit(OpIadd).
		Self("methodOne", "(I)V").
		Emit(OpReturn)
	b.Method(AccPublic, "methodOne", "(I)V").
		Get("a", "I").Get("b", "I").Emit(OpIadd).
		Self("methodTwo", "(I)V").
		Emit(OpReturn)
	b.Method(AccPublic, "methodTwo", "(I)V").
		Get("b", "I").Get("c", "I").Emit(OpIadd).
		Self("methodThree", "(I)V").
		Emit(OpReturn)
	b.Method(AccPublic, "methodThree", "(I)V").
		Get("c", "I").Get("d", "I").Emit(OpIadd).
		Invoke(OpInvokeSpecial, self, "<init>", "(I)V").
		Emit(OpReturn)
	return b.Bytes()
}

// ClassWithPublicField writes its own public static field.
func ClassWithPublicField() []byte {
	const self = "org/acme/samples/ClassWithPublicField"
	b := NewClass(self).Access(AccPublic|AccSuper).
		Field(AccPublic|AccStatic, "NAME", stringDesc).
		DefaultCtor()
	b.Method(AccPublic, "test", "()V").
		Ldc("test").
		FieldInsn(OpPutStatic, self, "NAME", stringDesc).
		Emit(OpReturn)
	b.Method(AccStatic, "<clinit>", "()V").
		Ldc("hey").
		FieldInsn(OpPutStatic, self, "NAME", stringDesc).
		Emit(OpReturn)
	return b.Bytes()
}

// ClassAccessingPublicField declares a field with the same name as
// ClassWithPublicField's but writes the other class's field.
func ClassAccessingPublicField() []byte {
	const self = "org/acme/samples/ClassAccessingPublicField"
	b := NewClass(self).
		Field(AccPublic|AccStatic, "NAME", stringDesc).
		DefaultCtor()
	b.Method(AccPublic, "test", "()V").
		Ldc("test").
		FieldInsn(OpPutStatic, "org/acme/samples/ClassWithPublicField", "NAME", stringDesc).
		Emit(OpReturn)
	b.Method(AccStatic, "<clinit>", "()V").
		Ldc("hey").
		FieldInsn(OpPutStatic, self, "NAME", stringDesc).
		Emit(OpReturn)
	return b.Bytes()
}

// OverloadMethods declares four overloads that chain into each other.
func OverloadMethods() []byte {
	const self = "OverloadMethods"
	sigs := []string{
		"(Ljava/lang/String;)D",
		"(Ljava/lang/String;Ljava/lang/String;)D",
		"(Ljava/lang/String;Ljava/lang/String;Z)D",
		"(Ljava/lang/String;Ljava/lang/String;ZD)D",
	}
	b := NewClass(self).Field(AccPrivate, "num", "I").DefaultCtor()
	for i, sig := range sigs {
		m := b.Method(AccPublic, "methodOne", sig).Increment("num")
		if i+1 < len(sigs) {
			m.Self("methodOne", sigs[i+1])
		} else {
			m.Get("num", "I").
				Invoke(OpInvokeVirtual, "java/lang/String", "length", "()I").
				Invoke(OpInvokeVirtual, "java/lang/String", "length", "()I")
		}
		m.Emit(0xaf) // dreturn
	}
	return b.Bytes()
}

// OverloadedCalls has three overloads of m. m(String) calls
// m(String,String); m(int) is called by nobody.
func OverloadedCalls() []byte {
	const (
		one = "(Ljava/lang/String;)V"
		two = "(Ljava/lang/String;Ljava/lang/String;)V"
	)
	b := NewClass("OverloadedCalls").DefaultCtor()
	b.Method(AccPublic, "m", one).Self("m", two).Emit(0xb1)
	b.Method(AccPublic, "m", two).Emit(0xb1)
	b.Method(AccPublic, "m", "(I)V").Emit(0xb1)
	return b.Bytes()
}

// Interface is an interface, which extraction excludes.
func Interface() []byte {
	b := NewClass("org/example/Shape").Access(AccPublic | AccInterface | AccAbstract)
	b.Method(AccPublic|AccAbstract, "area", "()D")
	return b.Bytes()
}

// AnonymousClass is a compiler-numbered inner class, which extraction
// excludes.
func AnonymousClass() []byte {
	return NewClass("org/example/Outer$1").DefaultCtor().Bytes()
}
