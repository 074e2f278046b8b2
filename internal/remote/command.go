package remote

import (
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"
)

// Quote returns s as a single POSIX shell word. It is the only quoting
// routine used for command text in this module.
func Quote(s string) string {
	return shellescape.Quote(s)
}

// QuoteArgs quotes every element and joins them with spaces.
func QuoteArgs(args ...string) string {
	return shellescape.QuoteCommand(args)
}

// WrapCommand returns the remote shell text for command. elevate prefixes a
// non-interactive sudo so a missing sudoers rule fails instead of prompting.
func WrapCommand(command string, elevate bool) string {
	wrapped := "/bin/sh -c " + Quote(command)
	if elevate {
		return "sudo -n " + wrapped
	}
	return wrapped
}

// sshArgs builds the argument vector for ssh(1). keyPath may be empty.
func sshArgs(target HostTarget, connectTimeout time.Duration, keyPath, remoteCommand string) []string {
	secs := int(connectTimeout / time.Second)
	if secs < 1 {
		secs = 1
	}

	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "ConnectTimeout=" + strconv.Itoa(secs),
		"-o", "LogLevel=ERROR",
		"-o", "BatchMode=yes",
		"-p", strconv.Itoa(target.EffectivePort()),
	}
	if keyPath != "" {
		args = append(args, "-i", keyPath, "-o", "IdentitiesOnly=yes")
	}
	return append(args, "--", target.Destination(), remoteCommand)
}

// firstNonEmpty returns stderr if it has content, otherwise stdout.
func firstNonEmpty(stderr, stdout string) string {
	if strings.TrimSpace(stderr) != "" {
		return stderr
	}
	return stdout
}
