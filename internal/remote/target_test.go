package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostTarget(t *testing.T) {
	target := HostTarget{Address: "203.0.113.7", User: "deploy", PrivateKey: []byte("secret")}

	assert.Equal(t, 22, target.EffectivePort())
	assert.Equal(t, "deploy@203.0.113.7", target.Destination())
	assert.Equal(t, "deploy@203.0.113.7:22", target.String())
	assert.NotContains(t, target.String(), "secret")
	assert.False(t, target.IsRoot())

	target.Port = 2200
	target.User = "root"
	assert.Equal(t, 2200, target.EffectivePort())
	assert.True(t, target.IsRoot())
	assert.NoError(t, target.Validate())
}

func TestHostTarget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		target  HostTarget
		wantErr bool
	}{
		{"valid", HostTarget{Address: "web-1.internal", User: "ops"}, false},
		{"valid ipv6", HostTarget{Address: "2001:db8::1", User: "ops", Port: 22}, false},
		{"no address", HostTarget{User: "ops"}, true},
		{"address with space", HostTarget{Address: "a b", User: "ops"}, true},
		{"address with at", HostTarget{Address: "x@y", User: "ops"}, true},
		{"no user", HostTarget{Address: "host"}, true},
		{"dash user", HostTarget{Address: "host", User: "-l"}, true},
		{"negative port", HostTarget{Address: "host", User: "ops", Port: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapCommand(t *testing.T) {
	assert.Equal(t, "/bin/sh -c 'a && b'", WrapCommand("a && b", false))
	assert.Equal(t, "sudo -n /bin/sh -c 'a && b'", WrapCommand("a && b", true))
	assert.Equal(t, "example.com", Quote("example.com"))
	assert.Equal(t, "'a b'", Quote("a b"))
	assert.Equal(t, "certbot renew --cert-name 'x;y'", QuoteArgs("certbot", "renew", "--cert-name", "x;y"))
}
