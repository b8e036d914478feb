// Package ingest accepts or rejects candidate files offered by the user.
// Only metadata is inspected here; content is read later by the submission
// controller.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"shannon/internal/logging"
	"shannon/internal/notify"
)

// AcceptedExtension is the only extension the generator can train on.
const AcceptedExtension = ".txt"

// AcceptedMIME is reported for accepted files when the host gave no MIME type.
const AcceptedMIME = "text/plain"

// Rejection reasons.
const (
	ReasonWrongType = "File type must be .txt"
	ReasonTooMany   = "Too many files"
)

// Candidate is a file offered by a picker or a drop.
type Candidate struct {
	Name string
	Size int64
	MIME string
	Path string
	Open func() (io.ReadCloser, error)
}

// CandidateFromPath stats path and returns a candidate that opens it lazily.
func CandidateFromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}
	return Candidate{
		Name: info.Name(),
		Size: info.Size(),
		Path: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// UploadedFile is an accepted candidate. It stays owned by the form until a
// submission captures it.
type UploadedFile struct {
	Name            string
	SizeBytes       int64
	MIMEOrExtension string
	Path            string

	open func() (io.ReadCloser, error)
}

// NewUploadedFile builds an UploadedFile around an opener. Mostly for tests
// and for callers that already hold the content in memory.
func NewUploadedFile(name string, size int64, open func() (io.ReadCloser, error)) UploadedFile {
	return UploadedFile{Name: name, SizeBytes: size, MIMEOrExtension: AcceptedMIME, open: open}
}

// Open returns a reader over the file content.
func (f UploadedFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %s has no content source", f.Name)
	}
	return f.open()
}

// Rejection records why a candidate was refused.
type Rejection struct {
	Name   string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Name, r.Reason)
}

// Result is the outcome of one Accept call. At most one of Accepted and
// Rejections is populated; both are empty when no candidates were offered.
type Result struct {
	Accepted   *UploadedFile
	Rejections []Rejection
}

// Empty reports whether the call was a no-op.
func (r Result) Empty() bool {
	return r.Accepted == nil && len(r.Rejections) == 0
}

// Validate applies the acceptance rules without side effects.
func Validate(candidates []Candidate) Result {
	switch len(candidates) {
	case 0:
		return Result{}
	case 1:
	default:
		rej := make([]Rejection, 0, len(candidates))
		for _, c := range candidates {
			rej = append(rej, Rejection{Name: c.Name, Reason: ReasonTooMany})
		}
		return Result{Rejections: rej}
	}

	c := candidates[0]
	if !strings.EqualFold(filepath.Ext(c.Name), AcceptedExtension) {
		return Result{Rejections: []Rejection{{Name: c.Name, Reason: ReasonWrongType}}}
	}

	kind := c.MIME
	if kind == "" {
		kind = AcceptedMIME
	}
	return Result{Accepted: &UploadedFile{
		Name:            c.Name,
		SizeBytes:       c.Size,
		MIMEOrExtension: kind,
		Path:            c.Path,
		open:            c.Open,
	}}
}

// Variant selects how an Ingestor presents itself.
type Variant int

const (
	// VariantInteractive reports outcomes through the sink and the callback.
	VariantInteractive Variant = iota
	// VariantDecorative validates but stays silent and never calls back.
	VariantDecorative
)

// Options configures an Ingestor.
type Options struct {
	Variant    Variant
	Sink       notify.Sink
	OnAccepted func(UploadedFile)
}

// Ingestor validates candidates and reports the outcome.
type Ingestor struct {
	opts Options
}

// New creates an Ingestor. A nil sink discards notifications.
func New(opts Options) *Ingestor {
	if opts.Sink == nil {
		opts.Sink = notify.Discard
	}
	return &Ingestor{opts: opts}
}

// Accept validates candidates, notifies once per accepted or rejected file
// and forwards an accepted file to the OnAccepted callback.
func (in *Ingestor) Accept(candidates []Candidate) Result {
	res := Validate(candidates)
	if res.Empty() || in.opts.Variant == VariantDecorative {
		return res
	}

	log := logging.Get(logging.CategoryIngest)
	if res.Accepted != nil {
		f := *res.Accepted
		log.Info("accepted %s (%d bytes)", f.Name, f.SizeBytes)
		if in.opts.OnAccepted != nil {
			in.opts.OnAccepted(f)
		}
		in.opts.Sink.Notify(notify.KindSuccess, "File uploaded: "+f.Name, "")
	}
	for _, r := range res.Rejections {
		log.Warn("rejected %s: %s", r.Name, r.Reason)
		in.opts.Sink.Notify(notify.KindError, "Error uploading file: "+r.Name, r.Reason)
	}
	return res
}

// AcceptPaths stats each path and runs Accept. Paths that cannot be read are
// rejected with the stat error as reason; they still count toward the
// single-file limit.
func (in *Ingestor) AcceptPaths(paths []string) Result {
	if len(paths) > 1 {
		cands := make([]Candidate, 0, len(paths))
		for _, p := range paths {
			cands = append(cands, Candidate{Name: filepath.Base(p), Path: p})
		}
		return in.Accept(cands)
	}
	if len(paths) == 0 {
		return Result{}
	}

	c, err := CandidateFromPath(paths[0])
	if err != nil {
		res := Result{Rejections: []Rejection{{Name: filepath.Base(paths[0]), Reason: err.Error()}}}
		if in.opts.Variant == VariantInteractive {
			logging.Get(logging.CategoryIngest).Warn("unreadable candidate %s: %v", paths[0], err)
			in.opts.Sink.Notify(notify.KindError, "Error uploading file: "+res.Rejections[0].Name, res.Rejections[0].Reason)
		}
		return res
	}
	return in.Accept([]Candidate{c})
}
