package javaobj

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParsedContent is any value the parser can produce: a string, a class
// descriptor, an object instance, an array, an enum constant, a class
// object, a block of raw bytes, or an exception wrapper. Java's "null"
// is represented as a Go nil of this interface rather than as a
// dedicated variant.
type ParsedContent interface {
	// validate is called once per handle-table entry after the whole
	// stream has been read. The default implementation does nothing.
	validate() error
}

// Handled is implemented by every ParsedContent variant that occupies a
// slot in the handle table.
type Handled interface {
	ParsedContent
	GetHandle() uint32
}

// BlockData is a length-prefixed blob of raw bytes, written outside the
// declared field schema. It is never referenceable.
type BlockData struct {
	Data []byte
}

func (b *BlockData) validate() error { return nil }

// JavaString is a modified-UTF-8 decoded string, referenceable by
// later TcReference tags.
type JavaString struct {
	Handle uint32
	Value  string
}

func (s *JavaString) validate() error   { return nil }
func (s *JavaString) GetHandle() uint32 { return s.Handle }
func (s *JavaString) String() string    { return s.Value }

// Field is a single declared member of a class descriptor: a primitive
// type character and a name, or (for object/array members) additionally
// the JVM type signature string.
type Field struct {
	Type      FieldType
	Name      string
	ClassName *JavaString // only set for FieldObject / FieldArray
}

// ClassDesc is the on-wire metadata for a Java class: its name, its
// serialVersionUID, its declared field list (or, for a dynamic proxy,
// its interface list), its class annotations, and a link to its
// superclass descriptor.
type ClassDesc struct {
	Kind             ClassDescKind
	Handle           uint32
	Name             string // NormalClass only
	SerialVersionUID int64  // NormalClass only
	Flags            uint8
	Fields           []*Field   // NormalClass only; declared locally, not inherited
	Interfaces       []string   // ProxyClass only
	Annotations      []ParsedContent
	SuperClass       *ClassDesc
	EnumConstants    map[string]bool
}

func (c *ClassDesc) validate() error   { return nil }
func (c *ClassDesc) GetHandle() uint32 { return c.Handle }

func (c *ClassDesc) String() string {
	if c == nil {
		return "<nil class>"
	}
	if c.Kind == ProxyClass {
		return fmt.Sprintf("Proxy%v", c.Interfaces)
	}
	return c.Name
}

// hasFlag reports whether the given class-descriptor flag bit is set.
func (c *ClassDesc) hasFlag(f ClassDescFlag) bool {
	return f.in(c.Flags)
}

// hierarchy returns the chain of class descriptors from the most-super
// ancestor down to c itself, in the order instance data must be read.
func (c *ClassDesc) hierarchy() []*ClassDesc {
	var chain []*ClassDesc
	for cd := c; cd != nil; cd = cd.SuperClass {
		chain = append(chain, cd)
	}
	// reverse: chain is currently self-first, we want super-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// addEnumConstant records a constant name observed on one of this
// descriptor's enum values.
func (c *ClassDesc) addEnumConstant(name string) {
	if c.EnumConstants == nil {
		c.EnumConstants = make(map[string]bool)
	}
	c.EnumConstants[name] = true
}

// JavaClass is the decoded representation of a `java.lang.Class`
// literal appearing on the wire (a TC_CLASS entry).
type JavaClass struct {
	Handle    uint32
	ClassDesc *ClassDesc
}

func (c *JavaClass) validate() error   { return nil }
func (c *JavaClass) GetHandle() uint32 { return c.Handle }

// JavaArray is a decoded Java array: its element type character and its
// ordered element values.
type JavaArray struct {
	Handle      uint32
	ClassDesc   *ClassDesc
	ElementType FieldType
	Elements    []interface{}
}

func (a *JavaArray) validate() error   { return nil }
func (a *JavaArray) GetHandle() uint32 { return a.Handle }

// JavaEnum is a decoded enum constant reference: which descriptor it
// belongs to, and which constant name it names.
type JavaEnum struct {
	Handle    uint32
	ClassDesc *ClassDesc
	Constant  *JavaString
}

func (e *JavaEnum) validate() error {
	if e.Constant != nil && e.ClassDesc != nil && !e.ClassDesc.EnumConstants[e.Constant.Value] {
		return errors.Errorf("enum constant %q not recorded on descriptor %s", e.Constant.Value, e.ClassDesc.Name)
	}
	return nil
}
func (e *JavaEnum) GetHandle() uint32 { return e.Handle }

// Carrier is implemented by every concrete representation of a decoded
// Java object instance, including the generic fallback. Transformers
// produce carriers; the parser drives them through the class-data read.
type Carrier interface {
	ParsedContent
	Base() *JavaInstance
	// LoadFromInstance post-processes the recorded field/annotation data
	// into the carrier's own representation. Returning an error aborts
	// the parse.
	LoadFromInstance() error
	// LoadFromBlockData consumes externalizable block data written by a
	// custom writeExternal method. ok is false when this carrier cannot
	// interpret the bytes (the caller then raises
	// CannotInterpretExternalizable).
	LoadFromBlockData(p *Parser, r *reader) (ok bool, err error)
}

// JavaInstance is the generic decoded representation of a Java object:
// its class descriptor, its recorded field values and annotations per
// ancestor descriptor, and whether it has been marked as a thrown
// exception.
type JavaInstance struct {
	Handle      uint32
	ClassDesc   *ClassDesc
	FieldData   map[*ClassDesc]map[*Field]interface{}
	Annotations map[*ClassDesc][]ParsedContent
	IsException bool
}

func (i *JavaInstance) validate() error     { return nil }
func (i *JavaInstance) GetHandle() uint32   { return i.Handle }
func (i *JavaInstance) Base() *JavaInstance { return i }

// LoadFromInstance is the default, no-op post-processing hook.
func (i *JavaInstance) LoadFromInstance() error { return nil }

// LoadFromBlockData is the default hook: the generic instance has no
// idea how to interpret externalizable block data.
func (i *JavaInstance) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) {
	return false, nil
}

// fieldValue looks up a previously recorded value for a named field on
// the given ancestor descriptor.
func (i *JavaInstance) fieldValue(cd *ClassDesc, name string) (interface{}, bool) {
	values, ok := i.FieldData[cd]
	if !ok {
		return nil, false
	}
	for f, v := range values {
		if f.Name == name {
			return v, true
		}
	}
	return nil, false
}

// annotationsFor returns the class-annotation content recorded for the
// given ancestor descriptor, if any.
func (i *JavaInstance) annotationsFor(cd *ClassDesc) []ParsedContent {
	return i.Annotations[cd]
}

// firstAncestorNamed walks the ancestors that have recorded annotations
// looking for one whose descriptor name matches, returning its
// annotations. Ancestors with field data only are not searched.
func (i *JavaInstance) firstAncestorNamed(names map[string]bool) (*ClassDesc, []ParsedContent, bool) {
	for cd, anns := range i.Annotations {
		if names[cd.Name] {
			return cd, anns, true
		}
	}
	return nil, nil, false
}

// ExceptionState wraps a captured exception Instance together with the
// raw on-wire bytes spanning from its TC_EXCEPTION tag through the end
// of the decoded instance.
type ExceptionState struct {
	Exception Carrier
	RawBytes  []byte
}

func (e *ExceptionState) validate() error { return nil }
