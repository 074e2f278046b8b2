package remote

import (
	"bytes"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/logger"
)

const keyFilePattern = "sslops-key-*"

// keyMaterial returns the key for target, reading PrivateKeyFile when no
// inline key is set. A nil result means ssh falls back to its own identities.
func keyMaterial(target HostTarget) ([]byte, error) {
	if len(target.PrivateKey) > 0 {
		return target.PrivateKey, nil
	}
	if target.PrivateKeyFile == "" {
		return nil, nil
	}
	material, err := os.ReadFile(target.PrivateKeyFile)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCredential, "failed to read private key file", err)
	}
	return material, nil
}

// stagedKey is a private key written to disk for the lifetime of one call.
type stagedKey struct {
	Path        string
	Fingerprint string
}

// stageKey validates material and writes it to a new owner-only file in dir
// (os.TempDir when empty). The caller must defer Remove.
func stageKey(dir string, material []byte) (*stagedKey, error) {
	signer, err := ssh.ParsePrivateKey(material)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, errors.Wrap(errors.ErrCodeCredential, "passphrase-protected private keys are not supported", err)
		}
		return nil, errors.Wrap(errors.ErrCodeCredential, "invalid private key material", err)
	}

	f, err := os.CreateTemp(dir, keyFilePattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCredential, "failed to create key file", err)
	}
	path := f.Name()

	fail := func(msg string, err error) (*stagedKey, error) {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, errors.Wrap(errors.ErrCodeCredential, msg, err)
	}

	if err := f.Chmod(0o600); err != nil {
		return fail("failed to restrict key file permissions", err)
	}
	if _, err := f.Write(material); err != nil {
		return fail("failed to write key file", err)
	}
	// OpenSSH refuses keys without a trailing newline.
	if !bytes.HasSuffix(material, []byte("\n")) {
		if _, err := f.Write([]byte("\n")); err != nil {
			return fail("failed to write key file", err)
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, errors.Wrap(errors.ErrCodeCredential, "failed to close key file", err)
	}

	return &stagedKey{
		Path:        path,
		Fingerprint: ssh.FingerprintSHA256(signer.PublicKey()),
	}, nil
}

// Remove deletes the key file. A file that is already gone is not an error.
func (k *stagedKey) Remove() {
	if err := os.Remove(k.Path); err != nil && !os.IsNotExist(err) {
		logger.WarnFields("failed to remove staged key file", map[string]interface{}{
			"path":  k.Path,
			"error": err.Error(),
		})
	}
}
