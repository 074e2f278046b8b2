package remote

import (
	"fmt"
	"strings"

	"github.com/ksyq12/sslops/internal/errors"
)

// DefaultPort is used when HostTarget.Port is zero.
const DefaultPort = 22

// HostTarget describes the machine a command runs on. PrivateKeyFile is read
// at execution time and only when PrivateKey is empty.
type HostTarget struct {
	Address        string
	Port           int
	User           string
	PrivateKey     []byte
	PrivateKeyFile string
}

// EffectivePort returns Port, or DefaultPort when unset.
func (t HostTarget) EffectivePort() int {
	if t.Port == 0 {
		return DefaultPort
	}
	return t.Port
}

// IsRoot reports whether commands already run as root on the target.
func (t HostTarget) IsRoot() bool {
	return strings.EqualFold(t.User, "root")
}

// Destination returns the user@address argument for ssh.
func (t HostTarget) Destination() string {
	return t.User + "@" + t.Address
}

// String identifies the target in logs. It never includes key material.
func (t HostTarget) String() string {
	return fmt.Sprintf("%s:%d", t.Destination(), t.EffectivePort())
}

// Validate rejects targets that would be unsafe or meaningless to pass to ssh.
func (t HostTarget) Validate() error {
	if t.Address == "" {
		return errors.Validation("host address is required")
	}
	if strings.HasPrefix(t.Address, "-") || strings.ContainsAny(t.Address, " \t\r\n@") {
		return errors.Validation(fmt.Sprintf("invalid host address %q", t.Address))
	}
	if t.User == "" {
		return errors.Validation("login user is required")
	}
	if strings.HasPrefix(t.User, "-") || strings.ContainsAny(t.User, " \t\r\n@") {
		return errors.Validation(fmt.Sprintf("invalid login user %q", t.User))
	}
	if t.Port < 0 || t.Port > 65535 {
		return errors.Validation(fmt.Sprintf("invalid ssh port %d", t.Port))
	}
	return nil
}
