package contacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
)

func TestValidEmail(t *testing.T) {
	valid := []string{
		"a@b.co",
		"first.last@example.com",
		"user+tag@mail.example.org",
	}
	for _, s := range valid {
		assert.True(t, ValidEmail(s), s)
	}

	invalid := []string{
		"",
		"plain",
		"no@dot",
		"two@@example.com",
		"spa ce@example.com",
		"@example.com",
		"user@.com ",
	}
	for _, s := range invalid {
		assert.False(t, ValidEmail(s), s)
	}
}

func TestExtractThreadSentFolder(t *testing.T) {
	thread := &model.Thread{
		ID: "t1",
		Messages: []model.Message{
			{
				Sender: model.Sender{Email: "me@example.com", Name: "Me"},
				To:     []model.Sender{{Email: "alice@example.com", Name: "Alice"}},
				Cc:     []model.Sender{{Email: "bob@example.com"}},
				Bcc:    []model.Sender{{Email: "carol@example.com"}},
			},
		},
	}

	obs := ExtractThread(thread, provider.FolderSent)
	require.Len(t, obs, 4)

	byEmail := make(map[string]model.ContactObservation, len(obs))
	for _, o := range obs {
		byEmail[o.Email] = o
	}

	assert.Equal(t, int64(3), byEmail["alice@example.com"].Weight)
	assert.Equal(t, int64(2), byEmail["bob@example.com"].Weight)
	assert.Equal(t, int64(2), byEmail["carol@example.com"].Weight)
	assert.Equal(t, int64(1), byEmail["me@example.com"].Weight)

	require.NotNil(t, byEmail["alice@example.com"].Name)
	assert.Equal(t, "Alice", *byEmail["alice@example.com"].Name)
	assert.Nil(t, byEmail["bob@example.com"].Name)
}

func TestExtractThreadInboxIgnoresRecipients(t *testing.T) {
	thread := &model.Thread{
		ID: "t1",
		Messages: []model.Message{
			{
				Sender: model.Sender{Email: "alice@example.com"},
				To:     []model.Sender{{Email: "me@example.com"}},
				Cc:     []model.Sender{{Email: "bob@example.com"}},
			},
		},
	}

	obs := ExtractThread(thread, provider.FolderInbox)
	require.Len(t, obs, 1)
	assert.Equal(t, "alice@example.com", obs[0].Email)
	assert.Equal(t, int64(1), obs[0].Weight)
}

func TestAccumulatorMergesCaseInsensitively(t *testing.T) {
	acc := make(accumulator)
	acc.add("Alice@Example.com", "", 3)
	acc.add("alice@example.com", "Alice", 1)

	obs := acc.list()
	require.Len(t, obs, 1)
	assert.Equal(t, int64(4), obs[0].Weight)
	// First sighting's spelling is kept, later name fills the gap.
	assert.Equal(t, "Alice@Example.com", obs[0].Email)
	require.NotNil(t, obs[0].Name)
	assert.Equal(t, "Alice", *obs[0].Name)
}

func TestAccumulatorKeepsFirstName(t *testing.T) {
	acc := make(accumulator)
	acc.add("alice@example.com", "Alice A", 1)
	acc.add("alice@example.com", "Alice B", 1)

	obs := acc.list()
	require.Len(t, obs, 1)
	require.NotNil(t, obs[0].Name)
	assert.Equal(t, "Alice A", *obs[0].Name)
}

func TestAccumulatorRejectsInvalidAddresses(t *testing.T) {
	acc := make(accumulator)
	acc.add("not-an-email", "X", 5)
	acc.add("", "Y", 5)

	assert.Empty(t, acc.list())
}

func TestAccumulatorListIsDeterministic(t *testing.T) {
	acc := make(accumulator)
	acc.add("zeta@example.com", "", 1)
	acc.add("alpha@example.com", "", 1)
	acc.add("mid@example.com", "", 1)

	obs := acc.list()
	require.Len(t, obs, 3)
	assert.Equal(t, "alpha@example.com", obs[0].Email)
	assert.Equal(t, "mid@example.com", obs[1].Email)
	assert.Equal(t, "zeta@example.com", obs[2].Email)
}
