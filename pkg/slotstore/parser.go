package slotstore

import (
	"errors"
	"io"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// Parser walks a raw region buffer slot by slot.
// It is finite and does no I/O; build a new one for every buffer.
type Parser struct {
	geom Geometry
	raw  []byte
	next int
	done bool
}

// NewParser creates a parser over raw using the given geometry.
func NewParser(geom Geometry, raw []byte) *Parser {
	return &Parser{geom: geom, raw: raw}
}

// Next returns the next classified slot. It returns io.EOF once every slot
// of the geometry has been returned, or a *TruncatedReadError when the
// buffer ends before the last slot.
func (p *Parser) Next() (creds.Record, error) {
	count := p.geom.SlotCount()
	if p.done || p.next >= count {
		p.done = true
		return creds.Record{}, io.EOF
	}

	size := int(p.geom.SlotSize)
	start := p.next * size
	if start+size > len(p.raw) {
		p.done = true
		return creds.Record{}, &TruncatedReadError{Got: len(p.raw) / size, Expected: count}
	}

	rec := creds.Classify(p.next, p.raw[start:start+size])
	p.next++
	return rec, nil
}

// All drains the parser.
func (p *Parser) All() ([]creds.Record, error) {
	records := make([]creds.Record, 0, p.geom.SlotCount())
	for {
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
