package models

import "strings"

// OpKind is the kind of a cohesion-relevant instruction.
type OpKind string

const (
	OpGet       OpKind = "get"
	OpPut       OpKind = "put"
	OpGetStatic OpKind = "get_static"
	OpPutStatic OpKind = "put_static"
	OpCall      OpKind = "call"
)

// IsFieldAccess reports whether the kind reads or writes a field.
func (k OpKind) IsFieldAccess() bool {
	return k == OpGet || k == OpPut || k == OpGetStatic || k == OpPutStatic
}

// IsStatic reports whether the kind accesses a static field.
func (k OpKind) IsStatic() bool {
	return k == OpGetStatic || k == OpPutStatic
}

// Operation is one field access or invocation in a method body.
//
// Target holds the bare field name for get/put, the qualified name
// ("pkg.Owner.field") for the static kinds and "pkg.Owner.method" for calls.
type Operation struct {
	Kind   OpKind   `json:"kind" yaml:"kind"`
	Target string   `json:"target" yaml:"target"`
	Args   []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Visibility is a method's access level.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityDefault   Visibility = "default"
)

// Attribute is a field declared by the class itself.
type Attribute struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Public bool   `json:"public" yaml:"public"`
	Static bool   `json:"static" yaml:"static"`
	Final  bool   `json:"final" yaml:"final"`
}

// Method is a declared, non-synthetic method with its decoded operations.
type Method struct {
	Name       string      `json:"name" yaml:"name"`
	Desc       string      `json:"desc" yaml:"desc"`
	Ctor       bool        `json:"ctor" yaml:"ctor"`
	Static     bool        `json:"static" yaml:"static"`
	Abstract   bool        `json:"abstract" yaml:"abstract"`
	Public     bool        `json:"public" yaml:"public"`
	Bridge     bool        `json:"bridge" yaml:"bridge"`
	Visibility Visibility  `json:"visibility" yaml:"visibility"`
	Args       []string    `json:"args" yaml:"args"`
	Return     string      `json:"return" yaml:"return"`
	Ops        []Operation `json:"ops" yaml:"ops"`
}

// Private reports whether the method is declared private.
func (m *Method) Private() bool {
	return m.Visibility == VisibilityPrivate
}

// ClassModel is the structural skeleton of one compiled class.
type ClassModel struct {
	ID         string      `json:"id" yaml:"id"`
	Package    string      `json:"package" yaml:"package"`
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"`
	Digest     string      `json:"digest,omitempty" yaml:"digest,omitempty"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
	Methods    []Method    `json:"methods" yaml:"methods"`
}

// QualifiedName returns the dotted fully qualified class name.
func (c *ClassModel) QualifiedName() string {
	if c.Package == "" {
		return c.ID
	}
	return c.Package + "." + c.ID
}

// OwnsStatic reports whether a static access target refers to one of the
// class's own fields and returns the bare field name.
func (c *ClassModel) OwnsStatic(target string) (string, bool) {
	prefix := c.QualifiedName() + "."
	if !strings.HasPrefix(target, prefix) {
		return "", false
	}
	name := target[len(prefix):]
	if name == "" || strings.Contains(name, ".") {
		return "", false
	}
	return name, true
}

// OwnsCall reports whether a call target is a method on this class and
// returns the bare method name.
func (c *ClassModel) OwnsCall(target string) (string, bool) {
	return c.OwnsStatic(target)
}
