package javaobj

import (
	goerrors "errors"
	"io"

	"github.com/pkg/errors"
)

// Transformer maps a decoded class descriptor to a specialized Carrier.
// The parser consults its transformers in order when constructing an
// object instance; the first non-nil return wins.
type Transformer interface {
	Create(cd *ClassDesc) Carrier
}

// Parser is a single-use, single-threaded decoder session over one
// byte stream: a buffered reader, a handle table, and a registry of
// transformers consulted while constructing object instances.
type Parser struct {
	r            *reader
	handles      *handleTable
	transformers []Transformer
	snapshots    []map[uint32]ParsedContent
}

// NewParser constructs a parser reading from rd, consulting the given
// transformers (in order) when building object instances. Pass
// DefaultTransformers() to get the built-in collection/primitive/time
// support, or nil for a parser that only ever builds generic
// JavaInstance values.
func NewParser(rd io.Reader, transformers []Transformer) *Parser {
	return &Parser{
		r:            newReader(rd),
		handles:      newHandleTable(),
		transformers: transformers,
	}
}

// SetMaxDataBlockSize bounds the size of any single length-prefixed
// byte block the parser will allocate for, guarding against a
// corrupted or hostile length prefix demanding an enormous allocation.
func (p *Parser) SetMaxDataBlockSize(n int) {
	p.r.setMaxDataBlockSize(n)
}

// HandleSnapshots returns every handle-table snapshot archived over
// the life of the session: one for each reset that found the table
// non-empty (a TC_RESET, or either of the two resets around an
// exception frame), and the final one taken at the end of Run.
func (p *Parser) HandleSnapshots() []map[uint32]ParsedContent {
	return p.snapshots
}

// exceptionSignal is the internal non-local exit used to propagate "a
// decoded exception object was hit" back up to the nearest readContent
// call, where it is caught and reified as an ordinary return value
// carrying IsException=true. It must never escape readContent.
type exceptionSignal struct {
	content Carrier
}

func (e *exceptionSignal) Error() string { return "exception object encountered mid-read" }

// Run parses the whole stream: the header, then a top-level sequence
// of content, until end of stream.
func (p *Parser) Run() ([]ParsedContent, error) {
	magic, err := p.r.readUint16()
	if err != nil {
		return nil, wrapErr(ErrUnexpectedEndOfStream, err, "error reading stream magic")
	}
	if magic != streamMagic {
		return nil, newErr(ErrInvalidMagic, "invalid stream magic 0x%x", magic)
	}

	version, err := p.r.readUint16()
	if err != nil {
		return nil, wrapErr(ErrUnexpectedEndOfStream, err, "error reading stream version")
	}
	if version != streamVersion {
		return nil, newErr(ErrInvalidVersion, "invalid stream version 0x%x", version)
	}

	p.archiveReset()

	var top []ParsedContent
	for {
		start := p.r.pos()
		tagByte, err := p.r.tryReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, wrapErr(ErrUnexpectedEndOfStream, err, "error reading tag byte")
		}

		tag := Tag(tagByte)
		if tag == TcReset {
			p.archiveReset()
			continue
		}

		content, err := p.readContent(tag, true)
		if err != nil {
			return nil, err
		}

		if isExceptionContent(content) {
			end := p.r.pos()
			content = &ExceptionState{
				Exception: content.(Carrier),
				RawBytes:  p.r.window(start, end),
			}
		}

		top = append(top, content)
	}

	for _, content := range p.handles.all() {
		if err := content.validate(); err != nil {
			return nil, err
		}
	}

	// Archive the final table without clearing it, so Dump can still
	// list the session's live instances after Run returns.
	if entries := p.handles.all(); len(entries) > 0 {
		p.snapshots = append(p.snapshots, entries)
	}

	return top, nil
}

func (p *Parser) archiveReset() {
	if snapshot := p.handles.reset(); snapshot != nil {
		p.snapshots = append(p.snapshots, snapshot)
	}
}

func isExceptionContent(c ParsedContent) bool {
	carrier, ok := c.(Carrier)
	return ok && carrier.Base().IsException
}

// readContent dispatches a single type code to its handler. blockData
// controls whether a TC_BLOCKDATA/TC_BLOCKDATALONG is allowed at this
// position.
func (p *Parser) readContent(tag Tag, blockData bool) (ParsedContent, error) {
	if !blockData && (tag == TcBlockData || tag == TcBlockDataLong) {
		return nil, newErr(ErrUnexpectedBlockData, "got block data, not allowed here")
	}

	var (
		content ParsedContent
		err     error
	)

	switch tag {
	case TcNull:
		content, err = nil, nil
	case TcReference:
		content, err = p.doReference()
	case TcClassDesc, TcProxyClassDesc:
		content, err = p.doClassDesc(tag, false)
	case TcObject:
		content, err = p.doObject()
	case TcString, TcLongString:
		content, err = p.readNewString(tag)
	case TcArray:
		content, err = p.doArray()
	case TcClass:
		content, err = p.doClass()
	case TcBlockData, TcBlockDataLong:
		content, err = p.doBlockData(tag)
	case TcException:
		content, err = p.doException()
	case TcEnum:
		content, err = p.doEnum()
	default:
		return nil, newErr(ErrUnknownTag, "unknown type code 0x%x", tag)
	}

	if err != nil {
		// The signal may have been wrapped on its way up (annotation and
		// field reads add context), so walk the chain rather than type-
		// asserting the outermost error.
		var sig *exceptionSignal
		if goerrors.As(err, &sig) {
			return sig.content, nil
		}
		return nil, err
	}
	return content, nil
}

// doReference reads a back-reference handle and resolves it.
func (p *Parser) doReference() (ParsedContent, error) {
	handle, err := p.r.readHandle()
	if err != nil {
		return nil, errors.Wrap(err, "error reading reference handle")
	}
	content, ok := p.handles.get(handle)
	if !ok {
		return nil, newErr(ErrUnknownHandle, "unknown reference handle 0x%x", handle)
	}
	return content, nil
}

// readNewString reads a TC_STRING or TC_LONGSTRING, or resolves a
// TC_REFERENCE when a string is expected at this position.
func (p *Parser) readNewString(tag Tag) (*JavaString, error) {
	if tag == TcReference {
		content, err := p.doReference()
		if err != nil {
			return nil, err
		}
		str, ok := content.(*JavaString)
		if !ok {
			return nil, newErr(ErrReferenceTypeMismatch, "reference does not point to a string")
		}
		return str, nil
	}

	handle := p.handles.alloc()

	var text string
	var err error
	switch tag {
	case TcString:
		var n uint16
		n, err = p.r.readUint16()
		if err != nil {
			return nil, errors.Wrap(err, "error reading string length")
		}
		var data []byte
		data, err = p.r.readFull(int(n))
		if err != nil {
			return nil, errors.Wrap(err, "error reading string data")
		}
		text, err = decodeModifiedUTF8(data)
	case TcLongString:
		var small bool
		text, small, err = p.r.readLongUTF()
		_ = small // a long encoding of a short string is legal, just wasteful
	default:
		return nil, newErr(ErrUnexpectedTag, "expected TC_STRING, TC_LONGSTRING, or TC_REFERENCE, got 0x%x", tag)
	}
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			return nil, de
		}
		return nil, wrapErr(ErrDecodingError, err, "error decoding string")
	}

	str := &JavaString{Handle: handle, Value: text}
	p.handles.rebind(handle, str)
	return str, nil
}

// readClassDescFollowing reads a type code then dispatches to
// doClassDesc, used for every nested class-descriptor read site (the
// super class, and the descriptor that opens a TC_OBJECT, TC_CLASS,
// TC_ARRAY or TC_ENUM entry).
func (p *Parser) readClassDescFollowing() (*ClassDesc, error) {
	tagByte, err := p.r.readByte()
	if err != nil {
		return nil, errors.Wrap(err, "error reading class descriptor tag")
	}
	return p.doClassDesc(Tag(tagByte), false)
}

// doClassDesc parses a class descriptor: a new normal or proxy
// descriptor, a null, or a back-reference to one already read.
func (p *Parser) doClassDesc(tag Tag, mustBeNew bool) (*ClassDesc, error) {
	switch tag {
	case TcClassDesc:
		name, err := p.r.readUTF()
		if err != nil {
			return nil, errors.Wrap(err, "error reading class name")
		}

		serialVersionUID, err := p.r.readInt64()
		if err != nil {
			return nil, errors.Wrap(err, "error reading serialVersionUID")
		}

		handle := p.handles.alloc()
		cd := &ClassDesc{Kind: NormalClass, Handle: handle, Name: name, SerialVersionUID: serialVersionUID}
		// Reserve the handle before the nested reads below, so that a
		// back-reference emitted from within them (e.g. a cyclic field
		// class name) resolves to this shell instead of failing.
		if err := p.handles.bind(handle, cd); err != nil {
			return nil, err
		}

		flags, err := p.r.readUint8()
		if err != nil {
			return nil, errors.Wrap(err, "error reading class flags")
		}
		cd.Flags = flags

		fieldCount, err := p.r.readInt16()
		if err != nil {
			return nil, errors.Wrap(err, "error reading field count")
		}
		if fieldCount < 0 {
			return nil, newErr(ErrInvalidFieldCount, "negative field count %d", fieldCount)
		}

		fields := make([]*Field, 0, fieldCount)
		for i := 0; i < int(fieldCount); i++ {
			f, err := p.readFieldDesc()
			if err != nil {
				return nil, errors.Wrap(err, "error reading field descriptor")
			}
			fields = append(fields, f)
		}
		cd.Fields = fields

		annotations, err := p.readClassAnnotations()
		if err != nil {
			return nil, errors.Wrap(err, "error reading class annotations")
		}
		cd.Annotations = annotations

		super, err := p.readClassDescFollowing()
		if err != nil {
			return nil, errors.Wrap(err, "error reading super class")
		}
		cd.SuperClass = super

		p.handles.rebind(handle, cd)
		return cd, nil

	case TcProxyClassDesc:
		handle := p.handles.alloc()
		cd := &ClassDesc{Kind: ProxyClass, Handle: handle}
		if err := p.handles.bind(handle, cd); err != nil {
			return nil, err
		}

		nbInterfaces, err := p.r.readInt32()
		if err != nil {
			return nil, errors.Wrap(err, "error reading proxy interface count")
		}
		if nbInterfaces < 0 {
			return nil, newErr(ErrInvalidFieldCount, "negative interface count %d", nbInterfaces)
		}

		interfaces := make([]string, 0, nbInterfaces)
		for i := 0; i < int(nbInterfaces); i++ {
			name, err := p.r.readUTF()
			if err != nil {
				return nil, errors.Wrap(err, "error reading proxy interface name")
			}
			interfaces = append(interfaces, name)
		}
		cd.Interfaces = interfaces

		annotations, err := p.readClassAnnotations()
		if err != nil {
			return nil, errors.Wrap(err, "error reading class annotations")
		}
		cd.Annotations = annotations

		super, err := p.readClassDescFollowing()
		if err != nil {
			return nil, errors.Wrap(err, "error reading super class")
		}
		cd.SuperClass = super

		p.handles.rebind(handle, cd)
		return cd, nil

	case TcNull:
		if mustBeNew {
			return nil, newErr(ErrUnexpectedTag, "got TC_NULL where a new class descriptor was required")
		}
		return nil, nil

	case TcReference:
		if mustBeNew {
			return nil, newErr(ErrUnexpectedTag, "got TC_REFERENCE where a new class descriptor was required")
		}
		content, err := p.doReference()
		if err != nil {
			return nil, err
		}
		cd, ok := content.(*ClassDesc)
		if !ok {
			return nil, newErr(ErrReferenceTypeMismatch, "reference does not point to a class descriptor")
		}
		return cd, nil
	}

	return nil, newErr(ErrUnexpectedTag, "expected a class descriptor tag, got 0x%x", tag)
}

// readFieldDesc reads one field descriptor within a class descriptor.
func (p *Parser) readFieldDesc() (*Field, error) {
	typeByte, err := p.r.readUint8()
	if err != nil {
		return nil, errors.Wrap(err, "error reading field type")
	}
	fieldType := FieldType(typeByte)

	name, err := p.r.readUTF()
	if err != nil {
		return nil, errors.Wrap(err, "error reading field name")
	}

	f := &Field{Type: fieldType, Name: name}

	switch {
	case isPrimitiveFieldType(fieldType):
		return f, nil
	case fieldType == FieldObject || fieldType == FieldArray:
		strTag, err := p.r.readByte()
		if err != nil {
			return nil, errors.Wrap(err, "error reading field class name tag")
		}
		className, err := p.readNewString(Tag(strTag))
		if err != nil {
			return nil, errors.Wrap(err, "error reading field class name")
		}
		f.ClassName = className
		return f, nil
	default:
		return nil, newErr(ErrInvalidFieldType, "invalid field type character 0x%x", typeByte)
	}
}

// readClassAnnotations reads content repeatedly until TC_ENDBLOCKDATA.
// An intervening TC_RESET clears the session and the loop continues.
func (p *Parser) readClassAnnotations() ([]ParsedContent, error) {
	var contents []ParsedContent
	for {
		tagByte, err := p.r.readByte()
		if err != nil {
			return nil, errors.Wrap(err, "error reading annotation tag")
		}
		tag := Tag(tagByte)

		if tag == TcReset {
			p.archiveReset()
			continue
		}
		if tag == TcEndBlockData {
			return contents, nil
		}

		content, err := p.readContent(tag, true)
		if err != nil {
			return nil, err
		}

		if isExceptionContent(content) {
			return nil, &exceptionSignal{content: content.(Carrier)}
		}

		contents = append(contents, content)
	}
}

// createInstance consults the transformer registry, falling back to a
// generic JavaInstance when no transformer matches.
func (p *Parser) createInstance(cd *ClassDesc) Carrier {
	for _, t := range p.transformers {
		if carrier := t.Create(cd); carrier != nil {
			return carrier
		}
	}
	return &JavaInstance{}
}

// doObject parses a TC_OBJECT entry: its class descriptor, then the
// instance data for every class in the descriptor's hierarchy.
func (p *Parser) doObject() (Carrier, error) {
	cd, err := p.readClassDescFollowing()
	if err != nil {
		return nil, errors.Wrap(err, "error reading object class descriptor")
	}
	if cd == nil {
		return nil, newErr(ErrUnexpectedTag, "object class descriptor cannot be null")
	}

	handle := p.handles.alloc()
	carrier := p.createInstance(cd)
	carrier.Base().ClassDesc = cd
	carrier.Base().Handle = handle

	if err := p.handles.bind(handle, carrier); err != nil {
		return nil, err
	}

	if err := p.readClassData(carrier); err != nil {
		return nil, err
	}

	return carrier, nil
}

// readClassData walks the class hierarchy super-first, reading each
// ancestor's declared fields, write-method annotations, or
// externalizable block data as its flag byte dictates.
func (p *Parser) readClassData(carrier Carrier) error {
	instance := carrier.Base()
	hierarchy := instance.ClassDesc.hierarchy()

	allFields := make(map[*ClassDesc]map[*Field]interface{})
	allAnnotations := make(map[*ClassDesc][]ParsedContent)

	for _, cd := range hierarchy {
		serializable := cd.hasFlag(ScSerializable)
		externalizable := cd.hasFlag(ScExternalizable)

		switch {
		case serializable:
			if externalizable {
				return newErr(ErrFlagConflict, "class %s is both SC_SERIALIZABLE and SC_EXTERNALIZABLE", cd.Name)
			}

			values := make(map[*Field]interface{}, len(cd.Fields))
			for _, f := range cd.Fields {
				v, err := p.readFieldValue(f.Type)
				if err != nil {
					return errors.Wrapf(err, "error reading field %s.%s", cd.Name, f.Name)
				}
				values[f] = v
			}
			allFields[cd] = values

			if cd.hasFlag(ScWriteMethod) {
				if cd.hasFlag(ScEnum) {
					return newErr(ErrFlagConflict, "class %s is both SC_ENUM and SC_WRITE_METHOD", cd.Name)
				}
				anns, err := p.readClassAnnotations()
				if err != nil {
					return errors.Wrapf(err, "error reading annotations for %s", cd.Name)
				}
				allAnnotations[cd] = anns
			}

		case externalizable:
			if cd.hasFlag(ScBlockData) {
				ok, err := carrier.LoadFromBlockData(p, p.r)
				if err != nil {
					return errors.Wrapf(err, "error reading externalizable block data for %s", cd.Name)
				}
				if !ok {
					return newErr(ErrCannotInterpretExternalizable, "no carrier could interpret externalizable data for %s", cd.Name)
				}
			}
			anns, err := p.readClassAnnotations()
			if err != nil {
				return errors.Wrapf(err, "error reading annotations for %s", cd.Name)
			}
			allAnnotations[cd] = anns

		default:
			// Neither flag set: nothing recorded for this ancestor.
		}
	}

	instance.FieldData = allFields
	instance.Annotations = allAnnotations

	return carrier.LoadFromInstance()
}

// readFieldValue dispatches on a field's declared type character.
func (p *Parser) readFieldValue(t FieldType) (interface{}, error) {
	switch t {
	case FieldByte:
		return p.r.readInt8()
	case FieldChar:
		return p.r.readChar()
	case FieldDouble:
		return p.r.readFloat64()
	case FieldFloat:
		return p.r.readFloat32()
	case FieldInt:
		return p.r.readInt32()
	case FieldLong:
		return p.r.readInt64()
	case FieldShort:
		return p.r.readInt16()
	case FieldBool:
		return p.r.readBool()
	case FieldObject, FieldArray:
		tagByte, err := p.r.readByte()
		if err != nil {
			return nil, errors.Wrap(err, "error reading sub-content tag")
		}
		tag := Tag(tagByte)
		if t == FieldArray && tag != TcArray {
			return nil, newErr(ErrUnexpectedTag, "array field listed, but type code is 0x%x", tag)
		}

		content, err := p.readContent(tag, false)
		if err != nil {
			return nil, err
		}
		if isExceptionContent(content) {
			return nil, &exceptionSignal{content: content.(Carrier)}
		}
		return content, nil
	}
	return nil, newErr(ErrInvalidFieldType, "cannot read value of field type 0x%x", t)
}

// doEnum parses a TC_ENUM entry: the enum's class descriptor followed
// by its constant name. The enum object, not the constant string,
// binds under the newly allocated handle; the string gets its own
// handle from its own read.
func (p *Parser) doEnum() (*JavaEnum, error) {
	cd, err := p.readClassDescFollowing()
	if err != nil {
		return nil, errors.Wrap(err, "error reading enum class descriptor")
	}
	if cd == nil {
		return nil, newErr(ErrUnexpectedTag, "enum class descriptor cannot be null")
	}

	handle := p.handles.alloc()

	strTag, err := p.r.readByte()
	if err != nil {
		return nil, errors.Wrap(err, "error reading enum constant tag")
	}
	constant, err := p.readNewString(Tag(strTag))
	if err != nil {
		return nil, errors.Wrap(err, "error reading enum constant")
	}
	cd.addEnumConstant(constant.Value)

	enum := &JavaEnum{Handle: handle, ClassDesc: cd, Constant: constant}
	if err := p.handles.bind(handle, enum); err != nil {
		return nil, err
	}
	return enum, nil
}

// doClass parses a TC_CLASS entry, a class-literal reference.
func (p *Parser) doClass() (*JavaClass, error) {
	cd, err := p.readClassDescFollowing()
	if err != nil {
		return nil, errors.Wrap(err, "error reading class descriptor")
	}
	handle := p.handles.alloc()
	obj := &JavaClass{Handle: handle, ClassDesc: cd}
	if err := p.handles.bind(handle, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// doArray parses a TC_ARRAY entry. The element type comes from the
// second character of the descriptor's JVM signature name.
func (p *Parser) doArray() (*JavaArray, error) {
	cd, err := p.readClassDescFollowing()
	if err != nil {
		return nil, errors.Wrap(err, "error reading array class descriptor")
	}
	if cd == nil || len(cd.Name) < 2 {
		return nil, newErr(ErrInvalidArrayName, "array class descriptor name too short")
	}

	elementType := FieldType(cd.Name[1])

	handle := p.handles.alloc()

	// Reserve the handle and bind a shell before reading elements, so
	// that a cyclic array (an element that back-references this array
	// itself) resolves instead of failing with ErrUnknownHandle. See
	// the reserve-then-populate pattern already used for ClassDesc and
	// TC_OBJECT.
	arr := &JavaArray{Handle: handle, ClassDesc: cd, ElementType: elementType}
	if err := p.handles.bind(handle, arr); err != nil {
		return nil, err
	}

	size, err := p.r.readInt32()
	if err != nil {
		return nil, errors.Wrap(err, "error reading array size")
	}
	if size < 0 {
		return nil, newErr(ErrInvalidArraySize, "negative array size %d", size)
	}

	elements := make([]interface{}, size)
	for i := 0; i < int(size); i++ {
		v, err := p.readFieldValue(elementType)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading array element %d", i)
		}
		elements[i] = v
	}
	arr.Elements = elements

	return arr, nil
}

// doException reads a thrown-exception frame: the session resets, the
// offending instance follows, and the session resets again once it has
// been read.
func (p *Parser) doException() (Carrier, error) {
	p.archiveReset()

	tagByte, err := p.r.readByte()
	if err != nil {
		return nil, errors.Wrap(err, "error reading exception content tag")
	}
	tag := Tag(tagByte)
	if tag == TcReset {
		return nil, newErr(ErrUnexpectedTag, "TC_RESET read while reading exception frame")
	}

	content, err := p.readContent(tag, false)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, newErr(ErrUnexpectedTag, "exception object cannot be null")
	}

	carrier, ok := content.(Carrier)
	if !ok {
		return nil, newErr(ErrUnexpectedTag, "exception object is not an instance")
	}
	if carrier.Base().IsException {
		return nil, &exceptionSignal{content: carrier}
	}

	carrier.Base().IsException = true
	p.archiveReset()
	return carrier, nil
}

// doBlockData reads a TC_BLOCKDATA/TC_BLOCKDATALONG entry: a length
// prefix (8-bit unsigned or 32-bit signed) and that many raw bytes.
func (p *Parser) doBlockData(tag Tag) (*BlockData, error) {
	var size int
	switch tag {
	case TcBlockData:
		n, err := p.r.readUint8()
		if err != nil {
			return nil, errors.Wrap(err, "error reading block data size")
		}
		size = int(n)
	case TcBlockDataLong:
		n, err := p.r.readInt32()
		if err != nil {
			return nil, errors.Wrap(err, "error reading block data long size")
		}
		if n < 0 {
			return nil, newErr(ErrInvalidStringLength, "negative block data size %d", n)
		}
		size = int(n)
	default:
		return nil, newErr(ErrUnexpectedTag, "invalid tag for block data: 0x%x", tag)
	}

	data, err := p.r.readFull(size)
	if err != nil {
		return nil, errors.Wrap(err, "error reading block data")
	}
	return &BlockData{Data: data}, nil
}
