// Package env expands {{name}} and {{$NAME}} references in command line
// values.
//
// Plain names resolve from variables given on the command line, names with a
// leading dollar resolve from the process environment and then from a .env
// file. Unknown references are left as written.
package env
