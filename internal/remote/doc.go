// Package remote runs shell commands on remote hosts over ssh(1).
//
// A Gateway turns a HostTarget and a command string into exactly one ssh
// process, waits for it with a wall-clock deadline, and returns a Result with
// the captured stdout, stderr and exit status. It never retries.
//
// # Host Key Verification
//
// Every invocation passes
//
//	-o StrictHostKeyChecking=no -o UserKnownHostsFile=/dev/null
//
// so the configured target is trusted without a known_hosts check. This
// keeps unattended renewals from hanging on a prompt, at the cost of
// accepting whatever key the address presents. Operators who need
// protection against a spoofed host must enforce it at the network level.
// NewGateway logs a warning about this once per process.
//
// # Credentials
//
// When a HostTarget carries PrivateKey bytes, the key is parsed and
// fingerprinted, then written to a fresh 0600 file in the configured key
// directory just before ssh starts. The file is removed before Execute
// returns on every path: success, remote failure, timeout or panic.
// Passphrase-protected keys are rejected because ssh runs in BatchMode.
//
// # Quoting
//
// The command is sent as a single argument of the form
//
//	[sudo -n ] /bin/sh -c '<command>'
//
// quoted with shellescape. Callers building the command must quote any
// value they interpolate the same way (see Quote).
//
// # Errors
//
// Execute returns an *errors.OpError with one of these codes:
//
//	VALIDATION          bad HostTarget or empty command, nothing started
//	CREDENTIAL_STAGING  key could not be parsed or written, nothing started
//	TRANSPORT           ssh missing, failed to start, or exited 255
//	TIMEOUT             deadline reached, process killed, Result.TimedOut set
//	REMOTE_COMMAND      command exited non-zero
//
// A Result is returned alongside the error whenever the process ran.
package remote
