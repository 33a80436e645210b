// Package errors provides typed errors with exit codes for centic-ctl.
//
// # Error Types
//
// CenticError is the base error type that wraps an error with an exit code:
//
//	type CenticError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess      = 0 // Success
//	ExitGeneralError = 1 // General/unknown errors
//	ExitNoTokens     = 2 // Token file empty or missing
//	ExitConfigError  = 3 // Configuration error
//	ExitAPIError     = 4 // Rewards API call failed (one-shot commands)
//	ExitMetricsError = 5 // Metrics listener failed
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
