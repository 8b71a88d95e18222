package gen

import "os"

// debugPath returns where the unformatted output of path is kept when
// formatting fails.
func debugPath(path string) string {
	return path + ".error"
}

// writeDebug writes the unformatted output next to path for inspection.
// Errors are ignored as the caller is already reporting a failure.
func writeDebug(path string, raw []byte) string {
	p := debugPath(path)
	_ = os.WriteFile(p, raw, 0o644)
	return p
}

// removeDebug deletes a stale debug file once path formats again.
func removeDebug(path string) {
	_ = os.Remove(debugPath(path))
}
