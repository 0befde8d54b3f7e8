package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// ErrCorruptSnapshot is returned when a snapshot's headers disagree with its size.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// snapshotHeader is the dimensions and count prefix; itemOverhead is the four
// string length prefixes every item carries.
const (
	snapshotHeader = 8
	itemOverhead   = 16
)

// WriteSnapshot persists idx to path. The directory is created if needed.
// Format (little endian): dimensions (4), n (4), then per item: id, label and
// text as (len (4), bytes), followed by the vector (dimensions*4 bytes).
func WriteSnapshot(path string, idx *Index) error {
	if path == "" || idx == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := encodeSnapshot(w, idx); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install snapshot: %w", err)
	}
	return nil
}

func encodeSnapshot(w io.Writer, idx *Index) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(idx.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(idx.items))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, it := range idx.items {
		for _, s := range []string{it.ID, string(it.Label), it.Text, it.Indicator} {
			if err := writeString(w, s); err != nil {
				return err
			}
		}
		if _, err := w.Write(float32SliceToBytes(it.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// ReadSnapshot loads an index written by WriteSnapshot. A missing file returns
// (nil, nil) so callers can fall back to a full rebuild.
func ReadSnapshot(path string) (*Index, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	size := info.Size()
	r := bufio.NewReader(f)

	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if int64(dim)*4 > size {
		return nil, fmt.Errorf("%d dimensions exceed %d bytes: %w", dim, size, ErrCorruptSnapshot)
	}
	if perItem := int64(itemOverhead) + int64(dim)*4; int64(n)*perItem > size-snapshotHeader {
		return nil, fmt.Errorf("%d items of %d dimensions exceed %d bytes: %w", n, dim, size, ErrCorruptSnapshot)
	}
	items := make([]ReferenceItem, 0, n)
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		var fields [4]string
		for j := range fields {
			s, err := readString(r, size)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			fields[j] = s
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("item %d: read vector: %w", i, err)
		}
		label, err := ParseLabel(fields[1])
		if err != nil {
			return nil, fmt.Errorf("item %d: %v: %w", i, err, ErrCorruptSnapshot)
		}
		items = append(items, ReferenceItem{
			ID:        fields[0],
			Label:     label,
			Text:      fields[2],
			Indicator: fields[3],
			Vector:    bytesToFloat32Slice(buf),
		})
	}
	return Build(items)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("write string len: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

// readString reads a length-prefixed string no longer than limit bytes.
func readString(r io.Reader, limit int64) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read string len: %w", err)
	}
	if int64(n) > limit {
		return "", fmt.Errorf("string of %d bytes in a %d byte file: %w", n, limit, ErrCorruptSnapshot)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
