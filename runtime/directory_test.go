package runtime

import (
	"strings"
	"sync"
	"testing"

	"chat-relay/domain/group"

	"github.com/stretchr/testify/require"
)

func TestDirectory_CreateGroup(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)

	outcome, err := directory.CreateGroup("room1", "secret")
	req.NoError(err)
	req.Equal(group.OutcomeCreated, outcome)

	// Then a second creation with another passcode is refused
	outcome, err = directory.CreateGroup("room1", "other")
	req.NoError(err)
	req.Equal(group.OutcomeAlreadyExists, outcome)

	// And names are case-sensitive
	outcome, err = directory.CreateGroup("Room1", "other")
	req.NoError(err)
	req.Equal(group.OutcomeCreated, outcome)
	req.Equal(2, directory.Count())
}

func TestDirectory_CreateGroup_InvalidInput(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)

	for _, tt := range []struct{ name, passcode string }{
		{"", "x"},
		{"room1", ""},
		{"  ", "x"},
		{strings.Repeat("a", 51), "x"},
		{"room1", strings.Repeat("p", 51)},
	} {
		outcome, err := directory.CreateGroup(tt.name, tt.passcode)
		req.NoError(err)
		req.Equal(group.OutcomeInvalidInput, outcome, "name=%q passcode=%q", tt.name, tt.passcode)
	}
	req.Zero(directory.Count())
}

func TestDirectory_CreateGroup_ConcurrentCreatorsHaveOneWinner(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)
	const creators = 16

	// Given many creators racing on the same name with different passcodes
	outcomes := make([]group.Outcome, creators)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcome, err := directory.CreateGroup("race", strings.Repeat("p", i+1))
			req.NoError(err)
			outcomes[i] = outcome
		}(i)
	}
	close(start)
	wg.Wait()

	// Then exactly one of them created the group
	created := 0
	winner := -1
	for i, outcome := range outcomes {
		switch outcome {
		case group.OutcomeCreated:
			created++
			winner = i
		default:
			req.Equal(group.OutcomeAlreadyExists, outcome)
		}
	}
	req.Equal(1, created)

	// And the winner's passcode is the one kept
	outcome, err := directory.Join("conn-1", "race", strings.Repeat("p", winner+1))
	req.NoError(err)
	req.Equal(group.OutcomeJoined, outcome)
}

func TestDirectory_Join(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)
	_, err := directory.CreateGroup("lobby", "pw1")
	req.NoError(err)

	outcome, err := directory.Join("conn-1", "lobby", "pw1")
	req.NoError(err)
	req.Equal(group.OutcomeJoined, outcome)
	req.Equal([]group.ConnectionID{"conn-1"}, directory.Members("lobby"))

	// Joining twice is harmless
	outcome, err = directory.Join("conn-1", "lobby", "pw1")
	req.NoError(err)
	req.Equal(group.OutcomeJoined, outcome)
	req.Len(directory.Members("lobby"), 1)
}

func TestDirectory_Join_UnknownGroupAndWrongPasscodeLookAlike(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)
	_, err := directory.CreateGroup("lobby", "pw1")
	req.NoError(err)

	wrongPasscode, err := directory.Join("conn-1", "lobby", "nope")
	req.NoError(err)
	unknownGroup, err := directory.Join("conn-1", "nowhere", "pw1")
	req.NoError(err)

	req.Equal(group.OutcomeUnauthorized, wrongPasscode)
	req.Equal(wrongPasscode, unknownGroup)
	req.Empty(directory.Members("lobby"))
	req.Nil(directory.Members("nowhere"))
}

func TestDirectory_Join_InvalidInput(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)

	outcome, err := directory.Join("conn-1", "", "pw1")
	req.NoError(err)
	req.Equal(group.OutcomeInvalidInput, outcome)

	outcome, err = directory.Join("conn-1", "lobby", "")
	req.NoError(err)
	req.Equal(group.OutcomeInvalidInput, outcome)
}

func TestDirectory_Leave(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)
	_, err := directory.CreateGroup("lobby", "pw1")
	req.NoError(err)
	_, err = directory.Join("conn-1", "lobby", "pw1")
	req.NoError(err)
	_, err = directory.Join("conn-2", "lobby", "pw1")
	req.NoError(err)

	req.Equal(group.OutcomeLeft, directory.Leave("conn-1", "lobby"))
	req.Equal([]group.ConnectionID{"conn-2"}, directory.Members("lobby"))

	// Leaving again, or leaving an unknown group, is not an error
	req.Equal(group.OutcomeLeft, directory.Leave("conn-1", "lobby"))
	req.Equal(group.OutcomeLeft, directory.Leave("conn-1", "nowhere"))
	req.Equal(group.OutcomeInvalidInput, directory.Leave("conn-1", ""))
}

func TestDirectory_Drop(t *testing.T) {
	req := require.New(t)
	directory := newTestDirectory(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := directory.CreateGroup(name, "pw")
		req.NoError(err)
	}
	for _, name := range []string{"b", "a", "c"} {
		_, err := directory.Join("conn-1", name, "pw")
		req.NoError(err)
	}
	req.Equal(group.OutcomeLeft, directory.Leave("conn-1", "c"))
	_, err := directory.Join("conn-2", "a", "pw")
	req.NoError(err)

	// When the connection goes away
	dropped := directory.Drop("conn-1")

	// Then it is removed from every group it was still in
	req.Equal([]string{"a", "b"}, dropped)
	req.Equal([]group.ConnectionID{"conn-2"}, directory.Members("a"))
	req.Empty(directory.Members("b"))
	req.Nil(directory.Drop("conn-1"))
}
