// Package shared holds code used across packages that belongs to no single
// layer.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler for asserting on structured log output
//   - registry and dispatch fixtures, including the reference scenario used by
//     pipeline, service and handler tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    reg, disp, err := testutil.WriteScenarioCSV(t.TempDir())
//	    ...
//	}
package shared
