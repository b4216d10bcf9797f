package testutil

import (
	"io"

	"intake-go/internal/intake"
)

// StubParser is an ArchiveParser that returns a fixed entry list
// regardless of input. Useful for injecting unreadable entries that are
// hard to produce with a real archive.
type StubParser struct {
	Entries []intake.ArchiveEntry
	Err     error
}

func (p *StubParser) Parse(r io.ReaderAt, size int64) ([]intake.ArchiveEntry, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Entries, nil
}
