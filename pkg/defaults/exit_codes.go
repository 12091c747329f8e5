package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit, report generated
	ExitGenerateError = 1 // Report generation failed
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitIOError       = 3 // Store, filestore, or converter I/O failure
	ExitInternalError = 4 // Unexpected internal error
)
