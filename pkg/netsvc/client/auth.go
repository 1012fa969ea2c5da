package client

import (
	"crypto/sha512"
	"encoding/base64"
)

// HashPassword computes the SHA-512-then-base64 digest spec.md §6's
// authentication sequence sends in place of a plaintext password.
func HashPassword(password string) string {
	sum := sha512.Sum512([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Authenticator verifies a username/hashed-password pair against the
// instance's configured credentials.
type Authenticator interface {
	Authenticate(username, hashedPassword string) bool
}

// RunAuthSequence drives one connection's login:/password: exchange:
// receive returns the next prompt response from the peer, reply sends a
// message back. It returns once NewClientComplete has been sent.
func RunAuthSequence(auth Authenticator, receive func() (interface{}, error), reply func(interface{}) error) error {
	if err := reply(Prompt{Text: LoginPrompt}); err != nil {
		return err
	}
	loginMsg, err := receive()
	if err != nil {
		return err
	}
	login, ok := loginMsg.(LoginResponse)
	if !ok {
		return reply(UnknownRequest{Reason: "Unknown request"})
	}

	if err := reply(Prompt{Text: PasswordPrompt}); err != nil {
		return err
	}
	passMsg, err := receive()
	if err != nil {
		return err
	}
	pass, ok := passMsg.(PasswordResponse)
	if !ok {
		return reply(UnknownRequest{Reason: "Unknown request"})
	}

	ok = auth.Authenticate(login.Username, pass.HashedPassword)
	return reply(NewClientComplete{Authenticated: ok})
}
