// Package rowkit parses delimiter-separated and fixed-width tabular text
// with a streaming, branch-light row scanner, then binds rows onto
// caller-defined struct types through a descriptor compiled once per type.
//
// The entry points are [NewRowIterator] and [NewStreamRowIterator] for
// pull-based row-at-a-time iteration, [Binder] for decoding a row onto a
// struct, and [NewFixedWidthSpec]/[NewFixedWidthReader] for COBOL-style
// fixed-offset records. [ParseBytes] and [BindBytes] wrap the common case
// of an entire in-memory buffer.
package rowkit
