// Package errors provides structured, actionable error messages for the
// saferoute CLI.
//
// Each error has a unique code (e.g., "E110") that maps to a short
// message, a detailed explanation, a fix hint and a documentation URL.
// Classify turns an error from the generation engine into its coded form
// and collects every offending source location.
//
// # Error Codes
//
//   - E100-E109: scanning (missing routes, unsupported project type)
//   - E110-E119: validation (normalization failures, conflicts)
//   - E120-E129: artifact emission
//   - E130-E139: configuration
//   - E140-E149: CLI and watch mode
//
// # Usage
//
//	if err := pass.Err; err != nil {
//	    errors.PrintError(errors.Classify(err).ResolveContext(root))
//	}
//	// Output:
//	// ERROR E111: Conflicting routes
//	//
//	//   app/(alias)/user/[id]/page.tsx
//	//
//	//   /user/$id is declared twice
//	//
//	//   Hint: Route groups and symlinked folders do not change the URL; ...
//	//
//	//   Sources:
//	//     → app/(alias)/user/[id]/page.tsx
//	//     → app/user/[id]/page.tsx
package errors
