// Package fasta contains code for parsing FASTA files and the reference
// metadata the alnstats commands need from them: sequence names, lengths and
// GC content.  Briefly, FASTA files consist of a number of named sequences
// that may be interrupted by newlines.  For example:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appearing after a space is ignored.
// For example, '>chr1 A viral sequence' becomes 'chr1'.
package fasta

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
)

// Fasta holds a set of named sequences read into memory.
type Fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all FASTA data from the given reader into memory.
func New(r io.Reader) (*Fasta, error) {
	f := &Fasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1024*1024*64)
	var seqName string
	var seq strings.Builder
	flush := func() error {
		if seqName == "" {
			if seq.Len() != 0 {
				return errors.New("malformed FASTA file: sequence data before first header")
			}
			return nil
		}
		f.seqs[seqName] = seq.String()
		f.seqNames = append(f.seqNames, seqName)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			seqName = strings.Split(line[1:], " ")[0]
		} else {
			seq.WriteString(line)
		}
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(f.seqNames) == 0 {
		return nil, errors.New("malformed FASTA file: no sequences")
	}
	return f, nil
}

// SeqNames returns the names of all sequences, in order of appearance.
func (f *Fasta) SeqNames() []string { return f.seqNames }

// Len returns the length of the given sequence.
func (f *Fasta) Len(seqName string) (int, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return len(s), nil
}

// Get returns a substring of the given sequence at the given coordinates,
// treated as a 0-based half-open interval [start, end).
func (f *Fasta) Get(seqName string, start, end int) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start || start < 0 || end > len(s) {
		return "", errors.Errorf("invalid query range %d - %d for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

// Lengths returns a map from sequence name to sequence length.
func (f *Fasta) Lengths() map[string]int {
	lengths := make(map[string]int, len(f.seqNames))
	for name, s := range f.seqs {
		lengths[name] = len(s)
	}
	return lengths
}

// GC returns the GC content of the given sequence, as the fraction of
// unambiguous (ACGT) bases that are G or C.  A sequence with no unambiguous
// bases has GC content 0.
func (f *Fasta) GC(seqName string) (float64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	var gc, acgt int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'G', 'C', 'g', 'c':
			gc++
			acgt++
		case 'A', 'T', 'a', 't':
			acgt++
		}
	}
	if acgt == 0 {
		return 0, nil
	}
	return float64(gc) / float64(acgt), nil
}

// FaiToReferenceLengths reads a FASTA .fai index and returns a map of
// reference name to reference length.  This doesn't require reading the
// FASTA itself.  Index files consist of one tab-separated line per sequence:
// "<name>\t<length>\t<byte offset>\t<bases per line>\t<bytes per line>".
func FaiToReferenceLengths(index io.Reader) (map[string]int, error) {
	lengths := make(map[string]int)
	scanner := bufio.NewScanner(index)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			return nil, errors.Errorf("invalid .fai line: %q", line)
		}
		length, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid length in .fai line %q", line)
		}
		lengths[cols[0]] = length
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read .fai data")
	}
	return lengths, nil
}

// FromPath reads the (optionally compressed) FASTA file at the given path
// into memory.
func FromPath(path string) (fa *Fasta, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if e := infile.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(infile.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return New(reader)
}
