// SPDX-License-Identifier: MPL-2.0

// Package luabundle inlines a Lua module graph into one self-contained
// source file.
//
// Starting at an entry file, the bundler parses each module with
// gopher-lua's parser, follows every require call whose argument is a string
// literal, and resolves the name against an ordered list of package.path
// style templates (first match wins). Each file is included once, keyed by
// its canonical path; a second name for the same file becomes an alias.
//
// A require whose argument is not a literal cannot be followed without
// running the program. What happens then is decided by the caller's Policy:
// PolicyWarn records a DynamicReference and keeps going, PolicyAbort fails
// the whole bundle with a DynamicReferenceError.
//
// The emitted file starts with a small runtime that serves require from an
// in-memory table, registers one loader per module under its module name,
// and ends by running the entry module. Output is deterministic: bundling
// unchanged sources twice yields identical bytes.
package luabundle
