package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shannon/internal/ingest"
	"shannon/internal/notify"
)

func txtFile() ingest.UploadedFile {
	return *ingest.Validate([]ingest.Candidate{{Name: "notes.txt", Size: 500}}).Accepted
}

func TestDefaults(t *testing.T) {
	f := New(nil)
	assert.Equal(t, Config{Strength: 1, SentenceCount: 1}, f.Config())
	_, ok := f.File()
	assert.False(t, ok)
	assert.False(t, f.Inert())
}

func TestControlsClamp(t *testing.T) {
	f := New(nil)

	f.SetStrength(0)
	assert.Equal(t, 1, f.Config().Strength)
	f.SetStrength(9)
	assert.Equal(t, 4, f.Config().Strength)

	f.SetSentenceCount(-3)
	assert.Equal(t, 1, f.Config().SentenceCount)
	f.SetSentenceCount(11)
	assert.Equal(t, 10, f.Config().SentenceCount)

	f.SetStrength(2)
	f.StepStrength(-5)
	assert.Equal(t, 1, f.Config().Strength)
	f.SetSentenceCount(1)
	f.StepSentenceCount(3)
	assert.Equal(t, 4, f.Config().SentenceCount)
	f.StepSentenceCount(20)
	assert.Equal(t, 10, f.Config().SentenceCount)
}

func TestSubmit_MissingFile(t *testing.T) {
	var rec notify.Recorder
	f := New(&rec)

	_, err := f.Submit()
	require.True(t, errors.Is(err, ErrMissingFile))
	assert.False(t, f.Inert(), "a failed submit must leave the form interactive")

	errs := rec.OfKind(notify.KindError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Please upload a .txt file", errs[0].Detail)
}

func TestSubmit_EchoesEveryConfig(t *testing.T) {
	for s := MinStrength; s <= MaxStrength; s++ {
		for n := MinSentenceCount; n <= MaxSentenceCount; n++ {
			f := New(nil)
			f.SetFile(txtFile())
			f.SetStrength(s)
			f.SetSentenceCount(n)

			sub, err := f.Submit()
			require.NoError(t, err)
			assert.Equal(t, Config{Strength: s, SentenceCount: n}, sub.Config)
			assert.Equal(t, "notes.txt", sub.File.Name)
		}
	}
}

func TestSubmit_MakesFormInert(t *testing.T) {
	f := New(nil)
	f.SetFile(txtFile())
	f.SetStrength(3)
	_, err := f.Submit()
	require.NoError(t, err)
	require.True(t, f.Inert())

	f.SetStrength(1)
	f.ClearFile()
	assert.Equal(t, 3, f.Config().Strength, "inert form ignores control changes")
	_, ok := f.File()
	assert.True(t, ok)

	_, err = f.Submit()
	assert.ErrorIs(t, err, ErrInert)

	f.Reset()
	assert.False(t, f.Inert())
	assert.Equal(t, DefaultConfig(), f.Config())
	_, ok = f.File()
	assert.False(t, ok)
}

func TestSetFileReplaces(t *testing.T) {
	f := New(nil)
	f.SetFile(txtFile())
	other := ingest.NewUploadedFile("other.txt", 1, nil)
	f.SetFile(other)
	got, ok := f.File()
	require.True(t, ok)
	assert.Equal(t, "other.txt", got.Name)
}

func TestStrengthLabel(t *testing.T) {
	assert.Equal(t, "Very Weak", StrengthLabel(1))
	assert.Equal(t, "Weak", StrengthLabel(2))
	assert.Equal(t, "Strong", StrengthLabel(3))
	assert.Equal(t, "Very Strong", StrengthLabel(4))
	assert.Equal(t, "", StrengthLabel(5))
	assert.Equal(t, "strength=2 (Weak) sentences=5", Config{2, 5}.String())
}
