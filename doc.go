// Package javaobj decodes the Java Object Serialization Stream
// Protocol into a forest of typed content, without reconstructing or
// invoking any actual Java classes.
//
// A Parser consumes a stream written by an ObjectOutputStream and
// returns the top-level sequence of values it wrote, resolving
// back-references, walking class-descriptor super-class chains, and
// handing recognized object shapes off to a pluggable registry of
// Transformers that turn a generic instance into a more convenient Go
// value (a slice for a List, a map for a Map, a time.Time for a Date).
package javaobj
