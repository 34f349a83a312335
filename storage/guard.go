package storage

import (
	"errors"
	"log/slog"

	"xdao.co/chunkstore/chunk"
)

// Guard validates every chunk that passes through an underlying store. Names are
// checked before any backend call; content is checked before Put and before Get
// returns it. A signed chunk is only replaced by a higher version; the check reads
// the stored copy first, so backends that write concurrently must enforce it too.
type Guard struct {
	CAS        CAS
	Validation *chunk.Validation
	Logger     *slog.Logger
}

var _ CAS = Guard{}

// NewGuard wraps cas with default validation.
func NewGuard(cas CAS, logger *slog.Logger) Guard {
	return Guard{CAS: cas, Validation: chunk.NewValidation(), Logger: logger}
}

func (g Guard) validation() *chunk.Validation {
	if g.Validation != nil {
		return g.Validation
	}
	return chunk.NewValidation()
}

func (g Guard) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g Guard) Put(name chunk.Name, content []byte) error {
	v := g.validation()
	if !v.ValidName(name) {
		return ErrInvalidName
	}
	if err := v.Check(name, content); err != nil {
		g.logger().Warn("rejected chunk", "op", "put", "name", name, "rule", chunk.RuleID(err), "err", err)
		return InvalidChunk(err)
	}
	if !v.Hashable(name) {
		if err := g.checkReplace(name, content); err != nil {
			g.logger().Warn("rejected chunk", "op", "put", "name", name, "err", err)
			return err
		}
	}
	return g.CAS.Put(name, content)
}

// checkReplace refuses to roll a signed chunk back to an older version. A missing or
// invalid stored copy does not block the write.
func (g Guard) checkReplace(name chunk.Name, content []byte) error {
	stored, err := g.CAS.Get(name)
	switch {
	case err == nil:
		if g.validation().Check(name, stored) != nil {
			return nil
		}
		return CheckReplace(stored, content)
	case IsNotFound(err), errors.Is(err, ErrInvalidChunk):
		return nil
	default:
		return err
	}
}

func (g Guard) Get(name chunk.Name) ([]byte, error) {
	v := g.validation()
	if !v.ValidName(name) {
		return nil, ErrInvalidName
	}
	b, err := g.CAS.Get(name)
	if err != nil {
		return nil, err
	}
	if err := v.Check(name, b); err != nil {
		g.logger().Error("stored chunk failed validation", "op", "get", "name", name, "rule", chunk.RuleID(err), "err", err)
		return nil, InvalidChunk(err)
	}
	return b, nil
}

func (g Guard) Has(name chunk.Name) bool {
	return g.validation().ValidName(name) && g.CAS.Has(name)
}
