package stl

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	headerSize  = 80
	recordSize  = 50
	headerLabel = "isovolume binary STL"

	// maxPrealloc caps the facets reserved up front from the header count
	maxPrealloc = 1 << 20
)

// ErrTruncated is returned when an STL file ends before its last facet
var ErrTruncated = errors.New("stl: truncated file")

// SaveToSTL writes the triangles to a binary STL file
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := WriteSTL(w, triangles); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write STL file: %w", err)
	}
	return file.Close()
}

// WriteSTL encodes the triangles as binary STL
func WriteSTL(w io.Writer, triangles []Triangle) error {
	var header [headerSize]byte
	copy(header[:], headerLabel)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write STL header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	var record [recordSize]byte
	for _, t := range triangles {
		putVec(record[0:], t.Normal)
		putVec(record[12:], t.Vertex1)
		putVec(record[24:], t.Vertex2)
		putVec(record[36:], t.Vertex3)
		// Attribute byte count stays zero
		record[48], record[49] = 0, 0
		if _, err := w.Write(record[:]); err != nil {
			return fmt.Errorf("failed to write triangle: %w", err)
		}
	}
	return nil
}

// LoadSTL reads a binary STL file
func LoadSTL(filename string) ([]Triangle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open STL file: %w", err)
	}
	defer file.Close()
	return ReadSTL(bufio.NewReader(file))
}

// ReadSTL decodes binary STL
func ReadSTL(r io.Reader) ([]Triangle, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, ErrTruncated
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrTruncated
	}

	triangles := make([]Triangle, 0, min(int(count), maxPrealloc))
	var record [recordSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, record[:]); err != nil {
			return nil, fmt.Errorf("%w: facet %d of %d", ErrTruncated, i, count)
		}
		triangles = append(triangles, Triangle{
			Normal:  getVec(record[0:]),
			Vertex1: getVec(record[12:]),
			Vertex2: getVec(record[24:]),
			Vertex3: getVec(record[36:]),
		})
	}
	return triangles, nil
}

func putVec(b []byte, v mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v[i]))
	}
}

func getVec(b []byte) mgl32.Vec3 {
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
