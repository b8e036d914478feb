package ingest

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shannon/internal/notify"
)

func cand(name string) Candidate {
	return Candidate{Name: name, Size: 500}
}

func TestValidate_EmptyIsNoop(t *testing.T) {
	res := Validate(nil)
	assert.True(t, res.Empty())

	var rec notify.Recorder
	called := false
	in := New(Options{Sink: &rec, OnAccepted: func(UploadedFile) { called = true }})
	res = in.Accept([]Candidate{})
	assert.True(t, res.Empty())
	assert.False(t, called)
	assert.Empty(t, rec.All())
}

func TestValidate_MultipleAlwaysRejected(t *testing.T) {
	tests := []struct {
		name  string
		files []string
	}{
		{"two txt", []string{"a.txt", "b.txt"}},
		{"mixed", []string{"a.txt", "b.png", "c.md"}},
		{"two non-txt", []string{"x.png", "y.jpg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := make([]Candidate, 0, len(tt.files))
			for _, f := range tt.files {
				cands = append(cands, cand(f))
			}
			res := Validate(cands)
			assert.Nil(t, res.Accepted)
			require.Len(t, res.Rejections, len(tt.files))
			for i, r := range res.Rejections {
				assert.Equal(t, tt.files[i], r.Name)
				assert.Equal(t, ReasonTooMany, r.Reason)
			}
		})
	}
}

func TestValidate_Extension(t *testing.T) {
	tests := []struct {
		name   string
		accept bool
	}{
		{"notes.txt", true},
		{"NOTES.TXT", true},
		{"archive.tar.txt", true},
		{"image.png", false},
		{"notes.txt.bak", false},
		{"README", false},
		{"notes.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate([]Candidate{cand(tt.name)})
			if tt.accept {
				require.NotNil(t, res.Accepted)
				assert.Equal(t, tt.name, res.Accepted.Name)
				assert.EqualValues(t, 500, res.Accepted.SizeBytes)
				assert.Equal(t, AcceptedMIME, res.Accepted.MIMEOrExtension)
				assert.Empty(t, res.Rejections)
				return
			}
			assert.Nil(t, res.Accepted)
			want := []Rejection{{Name: tt.name, Reason: ReasonWrongType}}
			if diff := cmp.Diff(want, res.Rejections); diff != "" {
				t.Errorf("rejections mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIngestor_NotifiesAndCallsBack(t *testing.T) {
	var rec notify.Recorder
	var got []UploadedFile
	in := New(Options{Sink: &rec, OnAccepted: func(f UploadedFile) { got = append(got, f) }})

	in.Accept([]Candidate{cand("notes.txt")})
	require.Len(t, got, 1)
	assert.Equal(t, "notes.txt", got[0].Name)

	in.Accept([]Candidate{cand("image.png")})
	assert.Len(t, got, 1, "rejected files must not reach the callback")

	all := rec.All()
	require.Len(t, all, 2)
	assert.Equal(t, notify.KindSuccess, all[0].Kind)
	assert.Equal(t, "File uploaded: notes.txt", all[0].Title)
	assert.Equal(t, notify.KindError, all[1].Kind)
	assert.Equal(t, "Error uploading file: image.png", all[1].Title)
	assert.Equal(t, "File type must be .txt", all[1].Detail)
}

func TestIngestor_OneNotificationPerRejectedFile(t *testing.T) {
	var rec notify.Recorder
	in := New(Options{Sink: &rec})
	in.Accept([]Candidate{cand("a.txt"), cand("b.txt"), cand("c.png")})
	assert.Len(t, rec.OfKind(notify.KindError), 3)
	assert.Empty(t, rec.OfKind(notify.KindSuccess))
}

func TestIngestor_DecorativeIsSilent(t *testing.T) {
	var rec notify.Recorder
	called := false
	in := New(Options{Variant: VariantDecorative, Sink: &rec, OnAccepted: func(UploadedFile) { called = true }})

	res := in.Accept([]Candidate{cand("notes.txt")})
	require.NotNil(t, res.Accepted)
	assert.False(t, called)
	assert.Empty(t, rec.All())
}

func TestAcceptPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	var rec notify.Recorder
	in := New(Options{Sink: &rec})

	res := in.AcceptPaths([]string{path})
	require.NotNil(t, res.Accepted)
	assert.EqualValues(t, 11, res.Accepted.SizeBytes)
	assert.Equal(t, path, res.Accepted.Path)

	rc, err := res.Accepted.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	res = in.AcceptPaths([]string{filepath.Join(dir, "missing.txt")})
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, "missing.txt", res.Rejections[0].Name)

	res = in.AcceptPaths([]string{path, path})
	assert.Len(t, res.Rejections, 2)

	assert.True(t, in.AcceptPaths(nil).Empty())
}

func TestUploadedFile_OpenWithoutSource(t *testing.T) {
	_, err := UploadedFile{Name: "x.txt"}.Open()
	assert.Error(t, err)

	f := NewUploadedFile("y.txt", 3, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("abc")), nil
	})
	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "abc", string(b))
}

func TestRejectionError(t *testing.T) {
	r := &Rejection{Name: "a.png", Reason: ReasonWrongType}
	assert.Equal(t, "a.png: File type must be .txt", r.Error())
}
