// Package toolcache implements the runner tool cache gate.
//
// Entries follow the @actions/tool-cache layout,
// <root>/<tool>/<version>/<arch>, and are valid only once the sibling
// <arch>.complete marker exists. The gate writes a protobuf-JSON record into
// the marker; empty markers left by other clients are honoured as well.
package toolcache
