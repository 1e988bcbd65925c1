package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/diachron/internal/space"
)

const (
	// MaxDimension bounds the vector length accepted from a model header.
	MaxDimension = 1 << 16
	// maxPrealloc caps how many words are reserved up front; larger vocabularies grow
	// as records arrive.
	maxPrealloc = 1 << 16
)

// ReadWord2Vec parses the C word2vec binary format:
//
//	"<vocab> <dim>\n" then, per word, "<token> " followed by dim little-endian float32.
//
// A newline after each vector is optional. Words keep file order; on duplicates the first
// record wins.
func ReadWord2Vec(r io.Reader, id string) (*space.Space, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	vocab, dim, err := readHeader(br)
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", id, err)
	}

	b := space.NewBuilder(id, dim, min(vocab, maxPrealloc))
	raw := make([]byte, dim*4)
	for i := 0; i < vocab; i++ {
		word, err := readToken(br)
		if err != nil {
			return nil, fmt.Errorf("read %s record %d: %w", id, i, err)
		}
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, fmt.Errorf("read %s vector for %q: %w", id, word, unexpected(err))
		}
		b.Add(word, decodeFloat32s(raw, dim))
	}
	return b.Build()
}

// ReadWord2VecText parses the text variant: the same header, then one "word v1 ... vd" line
// per word.
func ReadWord2VecText(r io.Reader, id string) (*space.Space, error) {
	br := bufio.NewReader(r)
	vocab, dim, err := readHeader(br)
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", id, err)
	}
	b := space.NewBuilder(id, dim, min(vocab, maxPrealloc))
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	read := 0
	for sc.Scan() && read < vocab {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim+1 {
			return nil, fmt.Errorf("read %s line %d: expected %d values, got %d", id, read+2, dim, len(fields)-1)
		}
		vec := make([]float32, dim)
		for j, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("read %s line %d: %w", id, read+2, err)
			}
			vec[j] = float32(v)
		}
		b.Add(fields[0], vec)
		read++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	if read < vocab {
		return nil, fmt.Errorf("read %s: header declares %d words, found %d: %w", id, vocab, read, io.ErrUnexpectedEOF)
	}
	return b.Build()
}

// WriteWord2Vec serializes sp in the C word2vec binary format, one newline after each vector.
func WriteWord2Vec(w io.Writer, sp *space.Space) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	if _, err := fmt.Fprintf(bw, "%d %d\n", sp.Len(), sp.Dimension()); err != nil {
		return err
	}
	raw := make([]byte, sp.Dimension()*4)
	var werr error
	sp.Each(func(_ int, word string, vec []float32) bool {
		if word == "" || strings.ContainsAny(word, " \n") {
			werr = fmt.Errorf("word %q cannot be written in word2vec format", word)
			return false
		}
		encodeFloat32s(raw, vec)
		if _, werr = bw.WriteString(word); werr != nil {
			return false
		}
		if werr = bw.WriteByte(' '); werr != nil {
			return false
		}
		if _, werr = bw.Write(raw); werr != nil {
			return false
		}
		werr = bw.WriteByte('\n')
		return werr == nil
	})
	if werr != nil {
		return werr
	}
	return bw.Flush()
}

func readHeader(br *bufio.Reader) (vocab, dim int, err error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return 0, 0, unexpected(err)
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed header %q", strings.TrimSpace(line))
	}
	if vocab, err = strconv.Atoi(fields[0]); err != nil || vocab < 0 {
		return 0, 0, fmt.Errorf("malformed vocabulary size %q", fields[0])
	}
	if dim, err = strconv.Atoi(fields[1]); err != nil || dim <= 0 {
		return 0, 0, fmt.Errorf("malformed dimension %q", fields[1])
	}
	if dim > MaxDimension {
		return 0, 0, fmt.Errorf("dimension %d exceeds %d", dim, MaxDimension)
	}
	return vocab, dim, nil
}

// readToken skips newlines left over from the previous record and reads up to the
// separating space.
func readToken(br *bufio.Reader) (string, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", unexpected(err)
		}
		if c != '\n' && c != '\r' {
			if err := br.UnreadByte(); err != nil {
				return "", err
			}
			break
		}
	}
	tok, err := br.ReadBytes(' ')
	if err != nil {
		return "", unexpected(err)
	}
	tok = bytes.TrimSuffix(tok, []byte{' '})
	if len(tok) == 0 {
		return "", errors.New("empty token")
	}
	return string(tok), nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func encodeFloat32s(out []byte, v []float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
}

func decodeFloat32s(b []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
