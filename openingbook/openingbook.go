// Package openingbook reads and writes precomputed position scores. A book
// is a flat stream of 9-byte records: a little-endian 8-byte position key
// followed by a 1-byte biased score. There is no header.
package openingbook

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
)

const (
	keySize    = 8
	RecordSize = keySize + 1
)

type Record struct {
	Key   uint64
	Score uint8
}

// Inserter receives book records. It reports whether the record was kept.
type Inserter interface {
	PutOpening(key uint64, score uint8) bool
}

// Stats describes one load.
type Stats struct {
	Records  int
	Inserted int
	// Trailing is the length of a truncated final record, if any.
	Trailing int
	// Digest is an xxhash of every complete record read.
	Digest uint64
}

// Scan calls fn for every complete record in r. A truncated final record is
// ignored and reported in Stats.Trailing.
func Scan(r io.Reader, fn func(Record)) (Stats, error) {
	var st Stats
	br := bufio.NewReaderSize(r, 1<<16)
	d := xxhash.New()
	var buf [RecordSize]byte
	for {
		n, err := io.ReadFull(br, buf[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			st.Trailing = n
			log.Warn().Int("trailing-bytes", n).Int("records", st.Records).
				Msg("opening-book-truncated-record")
			break
		}
		if err != nil {
			st.Digest = d.Sum64()
			return st, err
		}
		d.Write(buf[:])
		fn(Record{
			Key:   binary.LittleEndian.Uint64(buf[:keySize]),
			Score: buf[keySize],
		})
		st.Records++
	}
	st.Digest = d.Sum64()
	return st, nil
}

// Load streams every record in r into dst.
func Load(r io.Reader, dst Inserter) (Stats, error) {
	inserted := 0
	st, err := Scan(r, func(rec Record) {
		if dst.PutOpening(rec.Key, rec.Score) {
			inserted++
		}
	})
	st.Inserted = inserted
	return st, err
}

// LoadFile opens path and streams it into dst.
func LoadFile(path string, dst Inserter) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return Load(f, dst)
}

// ReadFile decodes every record in path.
func ReadFile(path string) ([]Record, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()
	var recs []Record
	if fi, err := f.Stat(); err == nil {
		recs = make([]Record, 0, fi.Size()/RecordSize)
	}
	st, err := Scan(f, func(rec Record) {
		recs = append(recs, rec)
	})
	return recs, st, err
}

// Writer writes records in book format.
type Writer struct {
	w *bufio.Writer
	n int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(rec Record) error {
	var buf [RecordSize]byte
	binary.LittleEndian.PutUint64(buf[:keySize], rec.Key)
	buf[keySize] = rec.Score
	_, err := w.w.Write(buf[:])
	if err == nil {
		w.n++
	}
	return err
}

// Count returns the number of records written so far.
func (w *Writer) Count() int {
	return w.n
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

// AppendFile appends records to the book at path, creating it if needed.
func AppendFile(path string, recs []Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w := NewWriter(f)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			f.Close()
			return err
		}
	}
	return errors.Join(w.Flush(), f.Close())
}

// WriteFile replaces the book at path with recs.
func WriteFile(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := NewWriter(f)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			f.Close()
			return err
		}
	}
	return errors.Join(w.Flush(), f.Close())
}
