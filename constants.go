package javaobj

// Tag is a single stream type code, as emitted by ObjectOutputStream.
//
// See: https://docs.oracle.com/javase/8/docs/platform/serialization/spec/protocol.html
type Tag uint8

// Tag values, named after the Java Object Serialization Specification.
const (
	TcNull           Tag = 0x70
	TcReference      Tag = 0x71
	TcClassDesc      Tag = 0x72
	TcObject         Tag = 0x73
	TcString         Tag = 0x74
	TcArray          Tag = 0x75
	TcClass          Tag = 0x76
	TcBlockData      Tag = 0x77
	TcEndBlockData   Tag = 0x78
	TcReset          Tag = 0x79
	TcBlockDataLong  Tag = 0x7A
	TcException      Tag = 0x7B
	TcLongString     Tag = 0x7C
	TcProxyClassDesc Tag = 0x7D
	TcEnum           Tag = 0x7E
)

// streamMagic and streamVersion are the fixed header values every stream
// must start with.
const (
	streamMagic   uint16 = 0xACED
	streamVersion uint16 = 5
)

// baseHandle is the handle value assigned to the first referenceable
// entity in a session. Each subsequent allocation returns the next value.
const baseHandle uint32 = 0x7E0000

// ClassDescFlag is a bit in a class descriptor's single flag byte.
type ClassDescFlag uint8

const (
	ScWriteMethod    ClassDescFlag = 0x01
	ScSerializable   ClassDescFlag = 0x02
	ScExternalizable ClassDescFlag = 0x04
	ScBlockData      ClassDescFlag = 0x08
	ScEnum           ClassDescFlag = 0x10
)

func (f ClassDescFlag) in(flags uint8) bool {
	return flags&uint8(f) != 0
}

// FieldType is the one-byte type character used in a field descriptor.
type FieldType byte

const (
	FieldByte   FieldType = 'B'
	FieldChar   FieldType = 'C'
	FieldDouble FieldType = 'D'
	FieldFloat  FieldType = 'F'
	FieldInt    FieldType = 'I'
	FieldLong   FieldType = 'J'
	FieldShort  FieldType = 'S'
	FieldBool   FieldType = 'Z'
	FieldObject FieldType = 'L'
	FieldArray  FieldType = '['
)

// isPrimitiveFieldType reports whether t is one of the eight primitive
// field type characters (as opposed to the object/array markers).
func isPrimitiveFieldType(t FieldType) bool {
	switch t {
	case FieldByte, FieldChar, FieldDouble, FieldFloat, FieldInt, FieldLong, FieldShort, FieldBool:
		return true
	default:
		return false
	}
}

// ClassDescKind distinguishes an ordinary class descriptor from a
// dynamic-proxy class descriptor.
type ClassDescKind int

const (
	NormalClass ClassDescKind = iota
	ProxyClass
)
