// Package preflight validates that the host can build and load the
// bridge libraries before a run.
//
// The checks cover:
//   - cgo availability in this binary
//   - a C compiler and archiver on PATH
//   - a writable build directory with free disk space
//   - built artifacts in the build directory
//   - the runtime library: loadable, exporting the add symbol with the
//     expected signature tag
//   - whether the shared library was linked at build time
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithBuildDir("build"))
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
