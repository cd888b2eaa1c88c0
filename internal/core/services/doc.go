// Package services holds the question-answering pipeline: indexing PDFs,
// retrieving passages, composing context, generating answers and logging
// them. Each service implements a driving port and reaches the outside
// world only through driven ports.
package services
