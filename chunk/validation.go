package chunk

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Validator is the capability set every chunk type implements.
type Validator interface {
	// ValidName reports whether name is well formed for the chunk type.
	ValidName(name Name) bool
	// Hashable reports whether validity is defined by name == digest(content).
	Hashable(name Name) bool
	// ValidChunk reports whether content is valid under name.
	ValidChunk(name Name, content []byte) bool
	// ValidChunkFile reports whether the content stored at path is valid under
	// name. A non-nil error means the content could not be read.
	ValidChunkFile(name Name, path string) (bool, error)
}

// Validation dispatches to the Validator for a name's chunk type.
type Validation struct {
	Default Default
	Signed  Signed
}

var _ Validator = (*Validation)(nil)

// NewValidation returns a dispatcher with default settings for every chunk type.
func NewValidation() *Validation { return &Validation{} }

// For returns the validator for t, or nil for TypeUnknown.
func (v *Validation) For(t Type) Validator {
	switch t {
	case TypeDefault:
		return v.Default
	case TypeSigned:
		return v.Signed
	default:
		return nil
	}
}

func (v *Validation) ValidName(name Name) bool {
	val := v.For(TypeOf(name))
	return val != nil && val.ValidName(name)
}

func (v *Validation) Hashable(name Name) bool {
	val := v.For(TypeOf(name))
	return val != nil && val.Hashable(name)
}

func (v *Validation) ValidChunk(name Name, content []byte) bool {
	return v.Check(name, content) == nil
}

func (v *Validation) ValidChunkFile(name Name, path string) (bool, error) {
	return result(v.CheckFileContext(context.Background(), name, path))
}

// Check validates in-memory content and returns the reason for a rejection.
func (v *Validation) Check(name Name, content []byte) error {
	switch TypeOf(name) {
	case TypeDefault:
		return v.Default.Check(name, content)
	case TypeSigned:
		return v.Signed.Check(name, content)
	default:
		return unknownType()
	}
}

// CheckFile validates the content stored at path.
func (v *Validation) CheckFile(name Name, path string) error {
	return v.CheckFileContext(context.Background(), name, path)
}

// CheckFileContext is CheckFile with cancellation, checked between blocks.
func (v *Validation) CheckFileContext(ctx context.Context, name Name, path string) error {
	switch TypeOf(name) {
	case TypeDefault:
		return v.Default.CheckFile(ctx, name, path)
	case TypeSigned:
		return v.Signed.CheckFile(ctx, name, path)
	default:
		return unknownType()
	}
}

func unknownType() error {
	return newError(KindName, "CHUNK-NAME-000", "unknown chunk type")
}

// Item is one chunk to validate in a batch. Exactly one of Content and Path is set.
type Item struct {
	Name    Name
	Content []byte
	Path    string
}

// Result is the outcome for one Item. Err is nil when Valid; otherwise it carries
// the *Error reason.
type Result struct {
	Name  Name
	Valid bool
	Err   error
}

// ValidateAll validates items on at most workers goroutines (unbounded when
// workers <= 0). Results are in item order. The returned error is non-nil only if ctx
// ends before every item has been scheduled.
func (v *Validation) ValidateAll(ctx context.Context, items []Item, workers int) ([]Result, error) {
	results := make([]Result, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, it := range items {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			switch {
			case it.Path != "" && it.Content != nil:
				err = newError(KindFormat, "CHUNK-ITEM-001", "item has both content and path")
			case it.Path != "":
				err = v.CheckFileContext(gctx, it.Name, it.Path)
			default:
				err = v.Check(it.Name, it.Content)
			}
			results[i] = Result{Name: it.Name, Valid: err == nil, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
