package javaobj

// transformerFunc adapts a plain function to the Transformer interface.
type transformerFunc func(cd *ClassDesc) Carrier

func (f transformerFunc) Create(cd *ClassDesc) Carrier { return f(cd) }

// classNameTransformer builds a Transformer that matches one of a set
// of exact class names and constructs a carrier with a fresh zero
// value of the given constructor's type. Proxy descriptors carry no
// class name and never match.
func classNameTransformer(names map[string]bool, newCarrier func() Carrier) Transformer {
	return transformerFunc(func(cd *ClassDesc) Carrier {
		if cd == nil || cd.Kind != NormalClass || !names[cd.Name] {
			return nil
		}
		return newCarrier()
	})
}

// DefaultTransformers returns the built-in registry recognizing the
// standard-library collection, boxed-primitive, date/calendar, and
// java.time.Ser shapes.
//
// Transformers are consulted in order; since every entry here matches
// a distinct, non-overlapping set of class names, order does not
// matter among them.
func DefaultTransformers() []Transformer {
	return []Transformer{
		classNameTransformer(boxedPrimitiveClasses, func() Carrier { return &JavaPrimitive{} }),
		classNameTransformer(listLikeClasses, func() Carrier { return &JavaList{} }),
		classNameTransformer(map[string]bool{"java.util.LinkedHashMap": true}, func() Carrier { return &JavaLinkedHashMap{} }),
		classNameTransformer(mapLikeClasses, func() Carrier { return &JavaMap{} }),
		classNameTransformer(enumMapLikeClasses, func() Carrier { return &JavaEnumMap{} }),
		classNameTransformer(treeSetClass, func() Carrier { return &JavaTreeSet{} }),
		classNameTransformer(setLikeClasses, func() Carrier { return &JavaSet{} }),
		classNameTransformer(arraysArrayListClass, func() Carrier { return &JavaArraysArrayList{} }),
		classNameTransformer(map[string]bool{javaTimeSerClass: true}, func() Carrier { return &JavaTime{} }),
		classNameTransformer(dateClass, func() Carrier { return &JavaDate{} }),
		classNameTransformer(calendarClasses, func() Carrier { return &JavaCalendar{} }),
	}
}
