package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

const docBase = "https://saferoute.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Scan Errors (E100-E109)
	// ============================================

	"E100": {
		Category:   CategoryScan,
		Message:    "Routes not found",
		Detail:     "The project root or its route directory does not exist.",
		Suggestion: "Check --root and --type, or set routesDir in saferoute.json",
		DocURL:     docBase + "E100",
	},
	"E101": {
		Category:   CategoryScan,
		Message:    "Unsupported project type",
		Detail:     "Supported project types are react, next-app and next-page.",
		Suggestion: "Pass --type react, --type next-app or --type next-page",
		DocURL:     docBase + "E101",
	},
	"E102": {
		Category:   CategoryCLI,
		Message:    "Invalid emission mode",
		Detail:     "Supported modes are flat and hierarchy.",
		Suggestion: "Pass --mode flat or --mode hierarchy",
		DocURL:     docBase + "E102",
	},

	// ============================================
	// Validation Errors (E110-E119)
	// ============================================

	"E110": {
		Category:   CategoryValidation,
		Message:    "Route normalization failed",
		Detail:     "A route path could not be turned into a valid pattern.",
		Suggestion: "Catch-all segments must be last and parameter names must be unique within a route",
		DocURL:     docBase + "E110",
	},
	"E111": {
		Category:   CategoryValidation,
		Message:    "Conflicting routes",
		Detail:     "Two sources resolve to the same URL shape.",
		Suggestion: "Route groups and symlinked folders do not change the URL; rename or remove one of the sources",
		DocURL:     docBase + "E111",
	},

	// ============================================
	// Emit Errors (E120-E129)
	// ============================================

	"E120": {
		Category:   CategoryEmit,
		Message:    "Artifact write failed",
		Detail:     "The generated file could not be written. The previous artifact is unchanged.",
		Suggestion: "Check that the output directory is writable",
		DocURL:     docBase + "E120",
	},

	// ============================================
	// Config Errors (E130-E139)
	// ============================================

	"E130": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Detail:     "saferoute.json or a SAFEROUTE_* variable could not be parsed.",
		Suggestion: "Check that saferoute.json is valid JSON and durations look like 150ms",
		DocURL:     docBase + "E130",
	},
	"E131": {
		Category:   CategoryConfig,
		Message:    "Configuration already exists",
		Detail:     "saferoute.json is already present in this directory.",
		Suggestion: "Pass --force to overwrite it",
		DocURL:     docBase + "E131",
	},
	"E132": {
		Category:   CategoryConfig,
		Message:    "Publishing not configured",
		Detail:     "Artifact publishing needs a bucket and AWS credentials.",
		Suggestion: "Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, for example in .env",
		DocURL:     docBase + "E132",
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Watch failed",
		Detail:   "The file watcher or status server could not start.",
		DocURL:   docBase + "E140",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
