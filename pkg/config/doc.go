// Package config holds the aggregated raw configuration the compiler
// consumes: user-authored resources discovered from YAML documents, indexed
// by kind and by module name.
//
// The package deliberately knows nothing about validation or the IR; it is
// the input boundary of the compilation pass. Entity factories pull matching
// resources from an Aggregate and turn them into typed IR entities.
package config
