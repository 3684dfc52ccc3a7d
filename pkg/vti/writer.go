package vti

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"isovolume/internal/models"
)

// Format selects how array data is stored
type Format int

const (
	// Appended stores raw bytes after the XML markup
	Appended Format = iota
	// Binary stores base64 text inside the DataArray element
	Binary
	// ASCII stores whitespace separated numbers
	ASCII
)

// compressionBlockSize is the uncompressed size of every zlib block but the last
const compressionBlockSize = 1 << 15

// WriteOptions controls the encoding of a written file
type WriteOptions struct {
	Format   Format
	Compress bool

	// Type is the VTK element type, Float32 when empty
	Type string

	// Name is the scalar array name, "Scalars_" when empty
	Name string

	BigEndian bool
}

// WriteFile stores a volume as a .vti file
func WriteFile(path string, vol *models.Volume, opts WriteOptions) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating volume file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := Write(w, vol, opts); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing volume file: %w", err)
	}
	return file.Close()
}

// Write encodes a volume as a VTK XML ImageData document
func Write(w io.Writer, vol *models.Volume, opts WriteOptions) error {
	if err := vol.Validate(); err != nil {
		return err
	}
	if opts.Type == "" {
		opts.Type = "Float32"
	}
	if opts.Name == "" {
		opts.Name = "Scalars_"
	}
	st, err := lookupType(opts.Type)
	if err != nil {
		return err
	}

	var order binary.ByteOrder = binary.LittleEndian
	byteOrder := "LittleEndian"
	if opts.BigEndian {
		order = binary.BigEndian
		byteOrder = "BigEndian"
	}

	raw := make([]byte, len(vol.Data)*st.size)
	for i, v := range vol.Data {
		st.encode(raw[i*st.size:], order, v)
	}

	var block []byte
	if opts.Format != ASCII {
		if block, err = encodeBlock(raw, order, opts.Compress); err != nil {
			return err
		}
	}

	ext := fmt.Sprintf("0 %d 0 %d 0 %d", vol.Width-1, vol.Height-1, vol.Depth-1)
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?>\n")
	fmt.Fprintf(&b, "<VTKFile type=\"ImageData\" version=\"1.0\" byte_order=\"%s\" header_type=\"UInt32\"", byteOrder)
	if opts.Compress && opts.Format != ASCII {
		fmt.Fprintf(&b, " compressor=\"%s\"", zlibCompressor)
	}
	b.WriteString(">\n")
	fmt.Fprintf(&b, "  <ImageData WholeExtent=\"%s\" Origin=\"%s\" Spacing=\"%s\">\n",
		ext, formatVec(vol.Origin), formatVec(vol.VoxelSize))
	fmt.Fprintf(&b, "    <Piece Extent=\"%s\">\n", ext)
	fmt.Fprintf(&b, "      <PointData Scalars=\"%s\">\n", opts.Name)

	lo, hi := vol.ScalarRange()
	attrs := fmt.Sprintf("type=\"%s\" Name=\"%s\" RangeMin=\"%s\" RangeMax=\"%s\"",
		st.name, opts.Name, formatFloat(lo), formatFloat(hi))

	switch opts.Format {
	case ASCII:
		fmt.Fprintf(&b, "        <DataArray %s format=\"ascii\">\n", attrs)
		for i := range vol.Data {
			if i%6 == 0 {
				b.WriteString("          ")
			}
			b.WriteString(formatFloat(st.decode(raw[i*st.size:], order)))
			if i%6 == 5 || i == len(vol.Data)-1 {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString("        </DataArray>\n")
	case Binary:
		fmt.Fprintf(&b, "        <DataArray %s format=\"binary\">\n          ", attrs)
		b.WriteString(base64Block(block, order, opts.Compress))
		b.WriteString("\n        </DataArray>\n")
	case Appended:
		fmt.Fprintf(&b, "        <DataArray %s format=\"appended\" offset=\"0\"/>\n", attrs)
	default:
		return fmt.Errorf("unknown format %d", opts.Format)
	}

	b.WriteString("      </PointData>\n      <CellData>\n      </CellData>\n    </Piece>\n  </ImageData>\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if opts.Format == Appended {
		if _, err := io.WriteString(w, "  <AppendedData encoding=\"raw\">\n   _"); err != nil {
			return err
		}
		if _, err := w.Write(block); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n  </AppendedData>\n"); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "</VTKFile>\n")
	return err
}

// encodeBlock prefixes raw with its UInt32 header, compressing it in
// fixed-size zlib blocks when asked
func encodeBlock(raw []byte, order binary.ByteOrder, compress bool) ([]byte, error) {
	var out bytes.Buffer
	put := func(v int) {
		var b [4]byte
		order.PutUint32(b[:], uint32(v))
		out.Write(b[:])
	}

	if !compress {
		put(len(raw))
		out.Write(raw)
		return out.Bytes(), nil
	}

	var blocks [][]byte
	for start := 0; start < len(raw); start += compressionBlockSize {
		end := start + compressionBlockSize
		if end > len(raw) {
			end = len(raw)
		}
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		if _, err := zw.Write(raw[start:end]); err != nil {
			return nil, fmt.Errorf("error compressing block: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("error compressing block: %w", err)
		}
		blocks = append(blocks, z.Bytes())
	}

	last := len(raw) % compressionBlockSize
	put(len(blocks))
	put(compressionBlockSize)
	put(last)
	for _, blk := range blocks {
		put(len(blk))
	}
	for _, blk := range blocks {
		out.Write(blk)
	}
	return out.Bytes(), nil
}

// base64Block encodes a header-prefixed block the way VTK does, with the
// header and the payload as two base64 runs
func base64Block(block []byte, order binary.ByteOrder, compressed bool) string {
	headerLen := 4
	if compressed {
		nblocks := int(order.Uint32(block))
		headerLen = (3 + nblocks) * 4
	}
	enc := base64.StdEncoding
	return enc.EncodeToString(block[:headerLen]) + enc.EncodeToString(block[headerLen:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatVec(v [3]float64) string {
	return formatFloat(v[0]) + " " + formatFloat(v[1]) + " " + formatFloat(v[2])
}
