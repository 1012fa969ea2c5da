package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedPeer struct {
	replies []interface{}
	sent    []interface{}
}

func (p *scriptedPeer) receive() (interface{}, error) {
	if len(p.replies) == 0 {
		return nil, errors.New("no more scripted replies")
	}
	m := p.replies[0]
	p.replies = p.replies[1:]
	return m, nil
}

func (p *scriptedPeer) reply(m interface{}) error {
	p.sent = append(p.sent, m)
	return nil
}

type allowAll struct{}

func (allowAll) Authenticate(username, hashedPassword string) bool { return username == "ok" }

func TestHashPasswordIsDeterministicAndNotPlaintext(t *testing.T) {
	h1 := HashPassword("secret")
	h2 := HashPassword("secret")
	require.Equal(t, h1, h2)
	require.NotEqual(t, "secret", h1)
}

func TestRunAuthSequenceSendsPromptsInOrder(t *testing.T) {
	peer := &scriptedPeer{replies: []interface{}{
		LoginResponse{Username: "ok"},
		PasswordResponse{HashedPassword: HashPassword("pw")},
	}}

	err := RunAuthSequence(allowAll{}, peer.receive, peer.reply)
	require.NoError(t, err)
	require.Equal(t, []interface{}{
		Prompt{Text: LoginPrompt},
		Prompt{Text: PasswordPrompt},
		NewClientComplete{Authenticated: true},
	}, peer.sent)
}

func TestRunAuthSequenceRejectsBadCredentials(t *testing.T) {
	peer := &scriptedPeer{replies: []interface{}{
		LoginResponse{Username: "nope"},
		PasswordResponse{HashedPassword: HashPassword("pw")},
	}}

	err := RunAuthSequence(allowAll{}, peer.receive, peer.reply)
	require.NoError(t, err)
	require.Equal(t, NewClientComplete{Authenticated: false}, peer.sent[len(peer.sent)-1])
}

func TestRunAuthSequenceRejectsUnexpectedLoginMessage(t *testing.T) {
	peer := &scriptedPeer{replies: []interface{}{
		PasswordResponse{HashedPassword: "wrong message type"},
	}}

	err := RunAuthSequence(allowAll{}, peer.receive, peer.reply)
	require.NoError(t, err)
	require.Equal(t, UnknownRequest{Reason: "Unknown request"}, peer.sent[len(peer.sent)-1])
}

func TestRunAuthSequencePropagatesReceiveError(t *testing.T) {
	peer := &scriptedPeer{}
	err := RunAuthSequence(allowAll{}, peer.receive, peer.reply)
	require.Error(t, err)
}
