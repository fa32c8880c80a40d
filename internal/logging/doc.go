// Package logging provides file-based structured logging with rotation.
// Logs are JSON lines written to ~/.orderindex/logs/ and, optionally, to
// stderr. The viewer reads them back for `orderindex logs`.
package logging
