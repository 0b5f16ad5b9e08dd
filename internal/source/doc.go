// Package source finds C/C++ translation units and headers under a project
// root and extracts the include targets each file declares.
//
// Extraction is textual: one include directive per line, no preprocessing.
// Unreadable files are reported as absent rather than as errors.
package source
