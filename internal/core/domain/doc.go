// Package domain holds the values that flow through question answering:
// extracted documents, chunks, index snapshots, retrieved passages, answers
// and history records, together with the settings and error kinds shared
// by every layer. It imports nothing outside the standard library.
package domain
