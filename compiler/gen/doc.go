// Package gen expands annotated Go source files into their state-overlay
// form.
//
// # Architecture
//
// One source file flows through these stages:
//
//	source file (//go:build stateshift)
//	        ↓
//	   annotation extraction (package annotation)
//	        ↓
//	   TrackedType / Operation (per-declaration, failures isolated)
//	        ↓
//	   Registry (markers, sealing interface, constraint; rendered with jennifer)
//	        ↓
//	   Resolve → Transition → RewriteResults → PatchBody (package rewrite)
//	        ↓
//	   print + format (header, !stateshift constraint, registries, decls)
//	        ↓
//	   <name>_stateshift.go
//
// # Key Types
//
//   - Config: tag, suffix, header, hidden field name, workers, cache
//   - TrackedType: an annotated struct with its slot count and default vector
//   - Operation: a function or method with its pre- and postcondition vectors
//   - Registry: the closed state vocabulary of one tracked type
//   - Binding, Resolution: the type arguments chosen for one operation
//   - Result: the outcome of Expand on one file
//   - Generator: parallel expansion of many files with caching
//
// # Usage
//
//	cfg, err := gen.NewConfig(gen.WithKeepGoing(true))
//	if err != nil {
//		return err
//	}
//	res, err := gen.Expand("player.go", src, cfg)
//
// Expand never stops at the first problem: every diagnostic is collected and
// joined into the returned error, and the declarations that failed are left
// out of the output.
package gen
