package javaobj

import (
	"bytes"
	"encoding/base64"
	"testing"
)

// decode parses a base64-encoded stream fixture with the default
// transformer registry and returns the typed top-level content.
func decode(t *testing.T, b64 string) []ParsedContent {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("invalid base64 fixture: %v", err)
	}
	p := NewParser(bytes.NewReader(raw), DefaultTransformers())
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return top
}

func elementStrings(t *testing.T, elems []interface{}) []string {
	t.Helper()
	out := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.(*JavaString)
		if !ok {
			t.Fatalf("element %d is not a *JavaString: %#v", i, e)
		}
		out[i] = s.Value
	}
	return out
}

func TestParseDate(t *testing.T) {
	top := decode(t, "rO0ABXNyAA5qYXZhLnV0aWwuRGF0ZWhqgQFLWXQZAwAAeHB3CAAAAX/a+xS+eA==")
	if len(top) != 1 {
		t.Fatalf("expected 1 top-level value, got %d", len(top))
	}
	date, ok := top[0].(*JavaDate)
	if !ok {
		t.Fatalf("expected *JavaDate, got %T", top[0])
	}
	if date.When.IsZero() {
		t.Fatalf("expected a populated timestamp")
	}
}

func TestParseArrayList(t *testing.T) {
	top := decode(t, "rO0ABXNyABNqYXZhLnV0aWwuQXJyYXlMaXN0eIHSHZnHYZ0DAAFJAARzaXpleHAAAAADdwQAAAADdAAFZWxlbTF0AAVlbGVtMnQABWVsZW0zeA==")
	list, ok := top[0].(*JavaList)
	if !ok {
		t.Fatalf("expected *JavaList, got %T", top[0])
	}
	got := elementStrings(t, list.Elements)
	want := []string{"elem1", "elem2", "elem3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseArrayDeque(t *testing.T) {
	top := decode(t, "rO0ABXNyABRqYXZhLnV0aWwuQXJyYXlEZXF1ZSB82i4kDaCLAwAAeHB3BAAAAAN0AAJlMXQAAmUydAACZTN4")
	list, ok := top[0].(*JavaList)
	if !ok {
		t.Fatalf("expected *JavaList, got %T", top[0])
	}
	got := elementStrings(t, list.Elements)
	want := []string{"e1", "e2", "e3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseCollSer(t *testing.T) {
	top := decode(t, "rO0ABXNyABFqYXZhLnV0aWwuQ29sbFNlcleOq7Y6G6gRAwABSQADdGFneHAAAAABdwQAAAADdAAFZWxlbTF0AAVlbGVtMnQABWVsZW0zeA==")
	list, ok := top[0].(*JavaList)
	if !ok {
		t.Fatalf("expected *JavaList, got %T", top[0])
	}
	got := elementStrings(t, list.Elements)
	want := []string{"elem1", "elem2", "elem3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseArraysArrayList(t *testing.T) {
	top := decode(t, "rO0ABXNyABpqYXZhLnV0aWwuQXJyYXlzJEFycmF5TGlzdNmkPL7NiAbSAgABWwABYXQAE1tMamF2YS9sYW5nL09iamVjdDt4cHVyABNbTGphdmEubGFuZy5TdHJpbmc7rdJW5+kde0cCAAB4cAAAAAN0AAVlbGVtMXQABWVsZW0ydAAFZWxlbTM=")
	list, ok := top[0].(*JavaArraysArrayList)
	if !ok {
		t.Fatalf("expected *JavaArraysArrayList, got %T", top[0])
	}
	got := elementStrings(t, list.Elements)
	want := []string{"elem1", "elem2", "elem3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseBareArray(t *testing.T) {
	top := decode(t, "rO0ABXVyABNbTGphdmEubGFuZy5PYmplY3Q7kM5YnxBzKWwCAAB4cAAAAAN0AAVlbGVtMXQABWVsZW0ydAAFZWxlbTM=")
	arr, ok := top[0].(*JavaArray)
	if !ok {
		t.Fatalf("expected *JavaArray, got %T", top[0])
	}
	if len(arr.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(arr.Elements))
	}
}

// TestCyclicArray: an array whose own element back-references the
// array itself must resolve against the array's handle rather than
// failing with ErrUnknownHandle, matching the self-reference support
// TC_OBJECT already has.
func TestCyclicArray(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})

	buf.WriteByte(byte(TcArray))
	writeEmptySerializableClassDesc(&buf, "[Ljava.lang.Object;", byte(ScSerializable))
	buf.Write([]byte{0x00, 0x00, 0x00, 0x01}) // size = 1

	// the class descriptor took 0x7E0000, the array itself 0x7E0001
	buf.WriteByte(byte(TcReference))
	buf.Write([]byte{0x00, 0x7E, 0x00, 0x01})

	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("expected 1 top-level value, got %d", len(top))
	}
	arr, ok := top[0].(*JavaArray)
	if !ok {
		t.Fatalf("expected *JavaArray, got %T", top[0])
	}
	if len(arr.Elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(arr.Elements))
	}
	if arr.Elements[0].(*JavaArray) != arr {
		t.Fatalf("expected element to be a self-reference to the array")
	}
}

func TestParseHashtable(t *testing.T) {
	top := decode(t, "rO0ABXNyABNqYXZhLnV0aWwuSGFzaHRhYmxlE7sPJSFK5LgDAAJGAApsb2FkRmFjdG9ySQAJdGhyZXNob2xkeHA/QAAAAAAACHcIAAAACwAAAAN0AARrZXkzdAAEdmFsM3QABGtleTJ0AAR2YWwydAAEa2V5MXQABHZhbDF4")
	m, ok := top[0].(*JavaMap)
	if !ok {
		t.Fatalf("expected *JavaMap, got %T", top[0])
	}
	if len(m.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m.Entries))
	}
	for k, v := range m.Entries {
		key, ok := k.(string)
		if !ok {
			t.Fatalf("expected string key, got %#v", k)
		}
		val, ok := v.(*JavaString)
		if !ok {
			t.Fatalf("expected *JavaString value, got %#v", v)
		}
		if key == "key1" && val.Value != "val1" {
			t.Errorf("key1: got %q", val.Value)
		}
	}
}

func TestParseEnumMap(t *testing.T) {
	top := decode(t, "rO0ABXNyABFqYXZhLnV0aWwuRW51bU1hcAZdffe+kHyhAwABTAAHa2V5VHlwZXQAEUxqYXZhL2xhbmcvQ2xhc3M7eHB2cgAWQmFzZTY0RW5jb2RlciRFbnVtVHlwZQAAAAAAAAAAEgAAeHIADmphdmEubGFuZy5FbnVtAAAAAAAAAAASAAB4cHcEAAAAA35xAH4AA3QABkVOVU1fQXQABHZhbDF+cQB+AAN0AAZFTlVNX0J0AAR2YWwyfnEAfgADdAAGRU5VTV9DdAAEdmFsM3g=")
	m, ok := top[0].(*JavaEnumMap)
	if !ok {
		t.Fatalf("expected *JavaEnumMap, got %T", top[0])
	}
	if len(m.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m.Entries))
	}
	want := map[string]string{"ENUM_A": "val1", "ENUM_B": "val2", "ENUM_C": "val3"}
	got := make(map[string]string, len(m.Entries))
	for k, v := range m.Entries {
		enum, ok := k.(*JavaEnum)
		if !ok {
			t.Fatalf("expected *JavaEnum key, got %#v", k)
		}
		val, ok := v.(*JavaString)
		if !ok {
			t.Fatalf("expected *JavaString value, got %#v", v)
		}
		got[enum.Constant.Value] = val.Value
	}
	for name, val := range want {
		if got[name] != val {
			t.Errorf("%s: got %q, want %q", name, got[name], val)
		}
	}
}

func TestParseHashSet(t *testing.T) {
	top := decode(t, "rO0ABXNyABFqYXZhLnV0aWwuSGFzaFNldLpEhZWWuLc0AwAAeHB3DAAAABA/QAAAAAAAA3QABGhzZTF0AARoc2UzdAAEaHNlMng=")
	s, ok := top[0].(*JavaSet)
	if !ok {
		t.Fatalf("expected *JavaSet, got %T", top[0])
	}
	if len(s.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(s.Elements))
	}
}

// TestNullOnly decodes a stream containing a single TC_NULL.
func TestNullOnly(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})
	buf.WriteByte(byte(TcNull))
	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 1 || top[0] != nil {
		t.Fatalf("expected a single nil content, got %#v", top)
	}
}

// TestShortStringAndBackReference decodes a short string followed by a
// back-reference to it; both top-level entries must share the one
// *JavaString.
func TestShortStringAndBackReference(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})

	buf.WriteByte(byte(TcString))
	buf.Write([]byte{0x00, 0x02})
	buf.WriteString("hi")

	buf.WriteByte(byte(TcReference))
	buf.Write([]byte{0x00, 0x7E, 0x00, 0x00}) // baseHandle

	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 top-level values, got %d", len(top))
	}
	s1, ok := top[0].(*JavaString)
	if !ok || s1.Value != "hi" {
		t.Fatalf("expected JavaString(hi), got %#v", top[0])
	}
	s2, ok := top[1].(*JavaString)
	if !ok || s2 != s1 {
		t.Fatalf("expected back-reference to the same *JavaString, got %#v", top[1])
	}
}

// TestResetAtTopLevel: a TC_RESET between two top-level strings must
// clear the handle table without affecting decoding.
func TestResetAtTopLevel(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})

	buf.WriteByte(byte(TcString))
	buf.Write([]byte{0x00, 0x03})
	buf.WriteString("one")

	buf.WriteByte(byte(TcReset))

	buf.WriteByte(byte(TcString))
	buf.Write([]byte{0x00, 0x03})
	buf.WriteString("two")

	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 top-level values, got %d", len(top))
	}
	if top[0].(*JavaString).Value != "one" || top[1].(*JavaString).Value != "two" {
		t.Fatalf("unexpected decoded strings: %#v", top)
	}
	if len(p.handles.all()) != 1 {
		t.Fatalf("expected only the post-reset string to remain bound, got %d entries", len(p.handles.all()))
	}
}

// writeEmptySerializableClassDesc writes a TC_CLASSDESC for a class
// named name with zero declared fields, the given flags, and a null
// super class.
func writeEmptySerializableClassDesc(buf *bytes.Buffer, name string, flags byte) {
	buf.WriteByte(byte(TcClassDesc))
	buf.Write([]byte{0, byte(len(name))})
	buf.WriteString(name)
	buf.Write(make([]byte, 8)) // serialVersionUID = 0
	buf.WriteByte(flags)
	buf.Write([]byte{0, 0}) // fieldCount = 0
	buf.WriteByte(byte(TcEndBlockData))
	buf.WriteByte(byte(TcNull)) // super class
}

// TestEmptySerializableInstance: an object of a zero-field
// SC_SERIALIZABLE class decodes to an instance with an empty field map
// and no recorded annotations.
func TestEmptySerializableInstance(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})

	buf.WriteByte(byte(TcObject))
	writeEmptySerializableClassDesc(&buf, "X", byte(ScSerializable))

	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("expected 1 top-level value, got %d", len(top))
	}
	carrier, ok := top[0].(Carrier)
	if !ok {
		t.Fatalf("expected a Carrier, got %T", top[0])
	}
	instance := carrier.Base()
	values, ok := instance.FieldData[instance.ClassDesc]
	if !ok || len(values) != 0 {
		t.Fatalf("expected an empty field map, got %#v", values)
	}
	if anns, ok := instance.Annotations[instance.ClassDesc]; ok && len(anns) != 0 {
		t.Fatalf("expected no recorded annotations, got %#v", anns)
	}
}

// TestExceptionFrame: a TC_EXCEPTION wrapping an instance is reported
// as a top-level ExceptionState whose raw bytes span from the
// TC_EXCEPTION tag through the end of the wrapped instance.
func TestExceptionFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})

	exceptionStart := buf.Len()
	buf.WriteByte(byte(TcException))
	buf.WriteByte(byte(TcObject))
	writeEmptySerializableClassDesc(&buf, "E", byte(ScSerializable))
	exceptionEnd := buf.Len()

	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("expected 1 top-level value, got %d", len(top))
	}
	state, ok := top[0].(*ExceptionState)
	if !ok {
		t.Fatalf("expected *ExceptionState, got %T", top[0])
	}
	if !state.Exception.Base().IsException {
		t.Fatalf("expected the wrapped instance to be flagged as an exception")
	}
	if len(state.RawBytes) != exceptionEnd-exceptionStart {
		t.Fatalf("expected %d raw bytes, got %d", exceptionEnd-exceptionStart, len(state.RawBytes))
	}
}

// TestHeaderOnly: a stream holding nothing but the magic and version
// parses to an empty top-level sequence.
func TestHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})
	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected no top-level content, got %#v", top)
	}
}

func TestInvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xCA, 0xFE, 0x00, 0x05})
	p := NewParser(&buf, nil)
	if _, err := p.Run(); err == nil {
		t.Fatalf("expected an error")
	} else if de, ok := err.(*DecodeError); !ok || de.Kind != ErrInvalidMagic {
		t.Fatalf("expected InvalidMagic, got %v", err)
	}
}

func TestInvalidVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x04})
	p := NewParser(&buf, nil)
	if _, err := p.Run(); err == nil {
		t.Fatalf("expected an error")
	} else if de, ok := err.(*DecodeError); !ok || de.Kind != ErrInvalidVersion {
		t.Fatalf("expected InvalidVersion, got %v", err)
	}
}

func TestLongString(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})
	buf.WriteByte(byte(TcLongString))
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 5})
	buf.WriteString("hello")

	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	s, ok := top[0].(*JavaString)
	if !ok || s.Value != "hello" {
		t.Fatalf("expected JavaString(hello), got %#v", top[0])
	}
}

// TestEnumBackReference: the handle allocated for a TC_ENUM binds the
// enum object itself, so a later back-reference to it resolves to the
// *JavaEnum, not to its constant string (which has its own handle from
// its own read).
func TestEnumBackReference(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})

	buf.WriteByte(byte(TcEnum))
	writeEmptySerializableClassDesc(&buf, "Color", byte(ScSerializable|ScEnum))
	buf.WriteByte(byte(TcString)) // constant name
	buf.Write([]byte{0x00, 0x03})
	buf.WriteString("RED")

	// class descriptor took 0x7E0000, the enum itself 0x7E0001, the
	// constant string 0x7E0002
	buf.WriteByte(byte(TcReference))
	buf.Write([]byte{0x00, 0x7E, 0x00, 0x01})

	p := NewParser(&buf, nil)
	top, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 top-level values, got %d", len(top))
	}
	enum, ok := top[0].(*JavaEnum)
	if !ok {
		t.Fatalf("expected *JavaEnum, got %T", top[0])
	}
	if enum.Constant.Value != "RED" {
		t.Fatalf("expected constant RED, got %q", enum.Constant.Value)
	}
	if !enum.ClassDesc.EnumConstants["RED"] {
		t.Fatalf("expected RED recorded on the descriptor's constant set")
	}
	if top[1] != ParsedContent(enum) {
		t.Fatalf("expected the back-reference to resolve to the enum object, got %#v", top[1])
	}
}

// TestFlagConflict: a class flagged both SC_SERIALIZABLE and
// SC_EXTERNALIZABLE aborts the parse.
func TestFlagConflict(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xAC, 0xED, 0x00, 0x05})
	buf.WriteByte(byte(TcObject))
	writeEmptySerializableClassDesc(&buf, "X", byte(ScSerializable|ScExternalizable))

	p := NewParser(&buf, nil)
	if _, err := p.Run(); err == nil {
		t.Fatalf("expected an error")
	} else if de, ok := err.(*DecodeError); !ok || de.Kind != ErrFlagConflict {
		t.Fatalf("expected FlagConflict, got %v", err)
	}
}
