package javaobj

import (
	"time"

	"github.com/pkg/errors"
)

// listLikeClasses names every standard class whose wire layout matches
// java.util.AbstractCollection's writeObject: a size int32 followed by
// that many elements, all recorded as class annotations.
var listLikeClasses = map[string]bool{
	"java.util.ArrayList":                       true,
	"java.util.LinkedList":                      true,
	"java.util.ArrayDeque":                      true,
	"java.util.concurrent.CopyOnWriteArrayList": true,
	"java.util.CollSer":                         true,
}

// JavaList is the carrier for list-shaped collections.
type JavaList struct {
	JavaInstance
	Elements []interface{}
}

func (l *JavaList) LoadFromInstance() error {
	if _, anns, ok := l.firstAncestorNamed(listLikeClasses); ok && len(anns) > 0 {
		l.Elements = toInterfaceSlice(anns[1:])
	}
	return nil
}

func (l *JavaList) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

// mapLikeClasses names standard classes carried as key/value pairs
// following a size int32, grouped two at a time.
var mapLikeClasses = map[string]bool{
	"java.util.HashMap":   true,
	"java.util.TreeMap":   true,
	"java.util.Hashtable": true,
}

// JavaMap is the carrier for HashMap/TreeMap/Hashtable.
type JavaMap struct {
	JavaInstance
	Entries map[interface{}]interface{}
}

func (m *JavaMap) LoadFromInstance() error {
	if _, anns, ok := m.firstAncestorNamed(mapLikeClasses); ok {
		m.Entries = pairsToMap(anns[1:])
		return nil
	}
	return nil
}

func (m *JavaMap) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

// JavaLinkedHashMap decodes java.util.LinkedHashMap, whose entries are
// written by a custom writeObject as externalizable block data rather
// than as class annotations: bucket count, size, then that many
// key/value content pairs, terminated by TC_ENDBLOCKDATA and a
// trailing zero byte.
type JavaLinkedHashMap struct {
	JavaMap
	Buckets int32
}

func (m *JavaLinkedHashMap) LoadFromBlockData(p *Parser, r *reader) (bool, error) {
	buckets, err := r.readInt32()
	if err != nil {
		return false, errors.Wrap(err, "error reading LinkedHashMap bucket count")
	}
	m.Buckets = buckets

	size, err := r.readInt32()
	if err != nil {
		return false, errors.Wrap(err, "error reading LinkedHashMap size")
	}

	entries := make(map[interface{}]interface{}, size)
	for i := int32(0); i < size; i++ {
		keyTag, err := r.readByte()
		if err != nil {
			return false, errors.Wrap(err, "error reading LinkedHashMap key tag")
		}
		key, err := p.readContent(Tag(keyTag), true)
		if err != nil {
			return false, errors.Wrap(err, "error reading LinkedHashMap key")
		}

		valueTag, err := r.readByte()
		if err != nil {
			return false, errors.Wrap(err, "error reading LinkedHashMap value tag")
		}
		value, err := p.readContent(Tag(valueTag), true)
		if err != nil {
			return false, errors.Wrap(err, "error reading LinkedHashMap value")
		}

		entries[mapKey(key)] = value
	}
	m.Entries = entries

	endTag, err := r.readByte()
	if err != nil {
		return false, errors.Wrap(err, "error reading LinkedHashMap end marker")
	}
	if Tag(endTag) != TcEndBlockData {
		return false, newErr(ErrUnexpectedTag, "expected TC_ENDBLOCKDATA after LinkedHashMap entries")
	}

	trailing, err := r.readByte()
	if err != nil {
		return false, errors.Wrap(err, "error reading LinkedHashMap trailing byte")
	}
	if trailing != 0 {
		return false, newErr(ErrUnexpectedTag, "expected trailing 0x0 after LinkedHashMap block data")
	}

	return true, nil
}

// enumMapLikeClasses names classes keyed by enum constants; the keys
// are kept as *JavaEnum values.
var enumMapLikeClasses = map[string]bool{
	"java.util.EnumMap": true,
}

// JavaEnumMap is the carrier for java.util.EnumMap.
type JavaEnumMap struct {
	JavaInstance
	Entries map[interface{}]interface{}
}

func (m *JavaEnumMap) LoadFromInstance() error {
	if _, anns, ok := m.firstAncestorNamed(enumMapLikeClasses); ok && len(anns) > 0 {
		m.Entries = pairsToMap(anns[1:])
		return nil
	}
	return nil
}

func (m *JavaEnumMap) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

// setLikeClasses names standard classes carried as a size int32
// followed by that many elements as class annotations.
var setLikeClasses = map[string]bool{
	"java.util.HashSet":       true,
	"java.util.LinkedHashSet": true,
}

// JavaSet is the carrier for HashSet/LinkedHashSet.
type JavaSet struct {
	JavaInstance
	Elements []interface{}
}

func (s *JavaSet) LoadFromInstance() error {
	if _, anns, ok := s.firstAncestorNamed(setLikeClasses); ok {
		if len(anns) > 0 {
			s.Elements = toInterfaceSlice(anns[1:])
		}
		return nil
	}
	return nil
}

func (s *JavaSet) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

// JavaTreeSet is like JavaSet, but java.util.TreeSet writes an extra
// leading annotation (a Comparator, usually null) before its size, so
// the element run starts one position later.
type JavaTreeSet struct {
	JavaSet
}

var treeSetClass = map[string]bool{"java.util.TreeSet": true}

func (s *JavaTreeSet) LoadFromInstance() error {
	if _, anns, ok := s.firstAncestorNamed(treeSetClass); ok {
		if len(anns) > 1 {
			s.Elements = toInterfaceSlice(anns[2:])
		}
		return nil
	}
	return nil
}

// arraysArrayListClass names the java.util.Arrays$ArrayList view
// backing Arrays.asList(...), whose single declared field "a" (an
// Object[]) already holds the already-decoded JavaArray.
var arraysArrayListClass = map[string]bool{"java.util.Arrays$ArrayList": true}

// JavaArraysArrayList is the carrier for java.util.Arrays$ArrayList.
type JavaArraysArrayList struct {
	JavaInstance
	Elements []interface{}
}

func (l *JavaArraysArrayList) LoadFromInstance() error {
	for cd := range l.FieldData {
		if !arraysArrayListClass[cd.Name] {
			continue
		}
		if v, ok := l.fieldValue(cd, "a"); ok {
			if arr, ok := v.(*JavaArray); ok {
				l.Elements = append([]interface{}(nil), arr.Elements...)
			}
		}
		return nil
	}
	return nil
}

func (l *JavaArraysArrayList) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

// boxedPrimitiveClasses names every standard boxed-primitive wrapper
// class, each of which declares a single field named "value".
var boxedPrimitiveClasses = map[string]bool{
	"java.lang.Boolean":   true,
	"java.lang.Byte":      true,
	"java.lang.Character": true,
	"java.lang.Double":    true,
	"java.lang.Float":     true,
	"java.lang.Integer":   true,
	"java.lang.Long":      true,
	"java.lang.Short":     true,
}

// JavaPrimitive is the carrier for a boxed primitive wrapper.
type JavaPrimitive struct {
	JavaInstance
	Value interface{}
}

// LoadFromInstance selects the recorded field value whose field is
// named "value".
func (p *JavaPrimitive) LoadFromInstance() error {
	for _, values := range p.FieldData {
		for field, v := range values {
			if field.Name == "value" {
				p.Value = v
				return nil
			}
		}
	}
	return nil
}

func (p *JavaPrimitive) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

// dateClass/calendarClasses carriers decode a millis-since-epoch
// payload into a time.Time.
var dateClass = map[string]bool{"java.util.Date": true}

// JavaDate is the carrier for java.util.Date.
type JavaDate struct {
	JavaInstance
	When time.Time
}

func (d *JavaDate) LoadFromInstance() error {
	if _, anns, ok := d.firstAncestorNamed(dateClass); ok && len(anns) > 0 {
		block, ok := anns[0].(*BlockData)
		if !ok || len(block.Data) < 8 {
			return nil
		}
		millis := int64(0)
		for _, b := range block.Data[:8] {
			millis = (millis << 8) | int64(b)
		}
		d.When = time.Unix(0, millis*int64(time.Millisecond)).UTC()
	}
	return nil
}

func (d *JavaDate) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

var calendarClasses = map[string]bool{
	"java.util.Calendar":          true,
	"java.util.GregorianCalendar": true,
}

// JavaCalendar is the carrier for java.util.Calendar/GregorianCalendar.
type JavaCalendar struct {
	JavaInstance
	When time.Time
}

func (c *JavaCalendar) LoadFromInstance() error {
	for cd, values := range c.FieldData {
		if !calendarClasses[cd.Name] {
			continue
		}
		for field, v := range values {
			if field.Name != "time" {
				continue
			}
			if millis, ok := v.(int64); ok {
				c.When = time.Unix(0, millis*int64(time.Millisecond)).UTC()
			}
		}
	}
	return nil
}

func (c *JavaCalendar) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return false, nil }

func toInterfaceSlice(cs []ParsedContent) []interface{} {
	out := make([]interface{}, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func pairsToMap(cs []ParsedContent) map[interface{}]interface{} {
	m := make(map[interface{}]interface{}, len(cs)/2)
	for i := 0; i+1 < len(cs); i += 2 {
		m[mapKey(cs[i])] = cs[i+1]
	}
	return m
}

// mapKey turns a ParsedContent into something usable as a Go map key.
// Java strings (the overwhelmingly common key type) are reduced to
// their plain text so callers can look entries up with a string
// literal instead of a *JavaString pointer.
func mapKey(c ParsedContent) interface{} {
	if s, ok := c.(*JavaString); ok {
		return s.Value
	}
	return c
}
