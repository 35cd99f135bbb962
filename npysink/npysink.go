// Package npysink writes calibrated sample vectors to NumPy .npy files, so
// captures can be inspected offline with numpy.load. Samples are stored as
// little-endian int32; the header is rewritten as data accumulates so a
// crash mid-capture still leaves a loadable file.
package npysink

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
)

// headerLen is the fixed size reserved for the .npy header. Keeping it fixed
// lets us rewrite the shape in place without moving the payload.
const headerLen = 128

// Writer appends millivolt samples to one .npy file.
type Writer struct {
	filename string
	file     *os.File
	count    int
}

// NewWriter creates (or truncates) filename and writes an empty-shape
// header.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	w := &Writer{filename: filename, file: file}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// Append writes the samples to the file as little-endian int32 and advances
// the recorded shape.
func (w *Writer) Append(samplesMV []int) error {
	buf := make([]byte, 4*len(samplesMV))
	for i, v := range samplesMV {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(int32(v)))
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	w.count += len(samplesMV)
	return nil
}

// Count returns the number of samples written so far.
func (w *Writer) Count() int {
	return w.count
}

// RefreshHeader rewrites the header so the file is loadable as-is.
func (w *Writer) RefreshHeader() error {
	return w.writeHeader()
}

// Close rewrites the header a final time and closes the file.
func (w *Writer) Close() error {
	if err := w.writeHeader(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// writeHeader writes the numpy v1.0 header: magic, version, a little-endian
// length, then the space-padded dict describing dtype and shape.
func (w *Writer) writeHeader() error {
	const magic = "\x93NUMPY\x01\x00"
	dict := fmt.Sprintf("{'descr': '<i4', 'fortran_order': False, 'shape': (%d,), }", w.count)
	padding := headerLen - len(magic) - 2 - len(dict) - 1
	if padding < 0 {
		return fmt.Errorf("npy header dict too long (%d samples)", w.count)
	}
	var b strings.Builder
	b.WriteString(magic)
	dictLen := headerLen - len(magic) - 2
	b.WriteByte(byte(dictLen & 0xFF))
	b.WriteByte(byte(dictLen >> 8))
	b.WriteString(dict)
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString("\n")

	if _, err := w.file.WriteAt([]byte(b.String()), 0); err != nil {
		return err
	}
	_, err := w.file.Seek(0, 2)
	return err
}
