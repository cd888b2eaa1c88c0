// Package file keeps settings and prompt templates as plain files under
// ~/.researchbot, so both can be edited by hand.
package file
