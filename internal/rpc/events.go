package rpc

// Server-originated event type names. Per spec §6, the server uses
// negative message IDs for these (conventionally -10001 for
// AppNonresponsiveDetected and -10000 for AppWillTerminateWithError),
// but dispatch is always by type, never by ID, for event routing.
const (
	eventAppConnected              = "appConnected"
	eventAppWillTerminateWithError = "AppWillTerminateWithError"
	eventAppNonresponsiveDetected  = "AppNonresponsiveDetected"
)
