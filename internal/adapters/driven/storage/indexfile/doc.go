// Package indexfile stores embedding index snapshots in a checked binary file.
//
// A file is a fixed little-endian header followed by a JSON payload:
//
//	magic    [8]byte  "RBINDEX\x00"
//	version  uint16
//	flags    uint16
//	length   uint64   payload byte length
//	checksum uint64   xxhash64 of the payload
//
// Load rejects any file whose header or checksum does not match, so a
// truncated or edited index is reported as a storage error instead of being
// partially loaded. Writes go to a temporary file that is renamed into place.
package indexfile
