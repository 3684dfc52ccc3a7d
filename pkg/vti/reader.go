// Package vti reads and writes VTK XML ImageData files (.vti), the
// structured-grid format the scalar fields are distributed in.
package vti

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"isovolume/internal/models"
)

var (
	// ErrNotImageData is returned for VTK files of another dataset type
	ErrNotImageData = errors.New("vti: not an ImageData file")

	// ErrUnsupportedType is returned for unknown array element types
	ErrUnsupportedType = errors.New("vti: unsupported data type")

	// ErrInvalidExtent is returned for inverted or oversized extents
	ErrInvalidExtent = errors.New("vti: invalid extent")

	// ErrTruncated is returned when array data ends early
	ErrTruncated = errors.New("vti: truncated data")

	// ErrNoScalars is returned when the file has no point data array
	ErrNoScalars = errors.New("vti: no point scalars")
)

const zlibCompressor = "vtkZLibDataCompressor"

type vtkFile struct {
	XMLName    xml.Name   `xml:"VTKFile"`
	Type       string     `xml:"type,attr"`
	Version    string     `xml:"version,attr"`
	ByteOrder  string     `xml:"byte_order,attr"`
	HeaderType string     `xml:"header_type,attr"`
	Compressor string     `xml:"compressor,attr"`
	ImageData  *imageData `xml:"ImageData"`
}

type imageData struct {
	WholeExtent string  `xml:"WholeExtent,attr"`
	Origin      string  `xml:"Origin,attr"`
	Spacing     string  `xml:"Spacing,attr"`
	Pieces      []piece `xml:"Piece"`
}

type piece struct {
	Extent    string      `xml:"Extent,attr"`
	PointData dataSection `xml:"PointData"`
}

type dataSection struct {
	Scalars string      `xml:"Scalars,attr"`
	Arrays  []dataArray `xml:"DataArray"`
}

type dataArray struct {
	Type               string `xml:"type,attr"`
	Name               string `xml:"Name,attr"`
	NumberOfComponents int    `xml:"NumberOfComponents,attr"`
	Format             string `xml:"format,attr"`
	Offset             int64  `xml:"offset,attr"`
	Content            string `xml:",chardata"`
}

type appendedTag struct {
	Encoding string `xml:"encoding,attr"`
}

// Read loads the point scalars of a .vti file
func Read(path string) (*models.Volume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading volume file: %w", err)
	}
	vol, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	zap.L().Debug("loaded image data",
		zap.String("file", path),
		zap.Int("width", vol.Width),
		zap.Int("height", vol.Height),
		zap.Int("depth", vol.Depth),
		zap.String("type", vol.ScalarType))
	return vol, nil
}

// Decode parses a complete .vti document
func Decode(data []byte) (*models.Volume, error) {
	header, appended, encoding, err := splitAppended(data)
	if err != nil {
		return nil, err
	}

	var doc vtkFile
	if err := xml.Unmarshal(header, &doc); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}
	if doc.Type != "ImageData" || doc.ImageData == nil {
		return nil, fmt.Errorf("%w: type %q", ErrNotImageData, doc.Type)
	}

	c, err := newCodec(&doc)
	if err != nil {
		return nil, err
	}
	c.appended = appended
	c.appendedBase64 = encoding == "base64"

	whole, err := parseInts(doc.ImageData.WholeExtent, 6)
	if err != nil {
		return nil, fmt.Errorf("invalid WholeExtent: %w", err)
	}
	if err := checkExtent(whole); err != nil {
		return nil, fmt.Errorf("WholeExtent: %w", err)
	}
	origin, err := parseVec(doc.ImageData.Origin, mgl64.Vec3{})
	if err != nil {
		return nil, fmt.Errorf("invalid Origin: %w", err)
	}
	spacing, err := parseVec(doc.ImageData.Spacing, mgl64.Vec3{1, 1, 1})
	if err != nil {
		return nil, fmt.Errorf("invalid Spacing: %w", err)
	}

	vol := models.NewVolume(whole[1]-whole[0]+1, whole[3]-whole[2]+1, whole[5]-whole[4]+1)
	vol.VoxelSize = spacing
	vol.Origin = mgl64.Vec3{
		origin[0] + float64(whole[0])*spacing[0],
		origin[1] + float64(whole[2])*spacing[1],
		origin[2] + float64(whole[4])*spacing[2],
	}
	if err := vol.Validate(); err != nil {
		return nil, err
	}

	if len(doc.ImageData.Pieces) == 0 {
		return nil, ErrNoScalars
	}
	for i, p := range doc.ImageData.Pieces {
		if err := c.readPiece(vol, whole, p); err != nil {
			return nil, fmt.Errorf("piece %d: %w", i, err)
		}
	}
	return vol, nil
}

// splitAppended separates the XML markup from an AppendedData section,
// whose raw bytes are not valid XML character data
func splitAppended(data []byte) (header, appended []byte, encoding string, err error) {
	start := bytes.Index(data, []byte("<AppendedData"))
	if start < 0 {
		return data, nil, "", nil
	}
	tagEnd := bytes.IndexByte(data[start:], '>')
	if tagEnd < 0 {
		return nil, nil, "", fmt.Errorf("%w: unterminated AppendedData tag", ErrTruncated)
	}
	tagEnd += start

	var tag appendedTag
	if err := xml.Unmarshal(append(append([]byte{}, data[start:tagEnd]...), []byte("/>")...), &tag); err != nil {
		return nil, nil, "", fmt.Errorf("invalid AppendedData tag: %w", err)
	}

	body := data[tagEnd+1:]
	underscore := bytes.IndexByte(body, '_')
	if underscore < 0 {
		return nil, nil, "", fmt.Errorf("%w: AppendedData without '_' marker", ErrTruncated)
	}
	body = body[underscore+1:]
	if end := bytes.LastIndex(body, []byte("</AppendedData>")); end >= 0 {
		body = body[:end]
	}

	header = append(append([]byte{}, data[:start]...), []byte("</VTKFile>")...)
	return header, body, tag.Encoding, nil
}

// codec decodes array payloads according to the file-level attributes
type codec struct {
	order          binary.ByteOrder
	headerSize     int
	compressed     bool
	appended       []byte
	appendedBase64 bool
}

func newCodec(doc *vtkFile) (*codec, error) {
	c := &codec{order: binary.LittleEndian, headerSize: 4}
	switch doc.ByteOrder {
	case "", "LittleEndian":
	case "BigEndian":
		c.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("unknown byte order %q", doc.ByteOrder)
	}
	switch doc.HeaderType {
	case "", "UInt32":
	case "UInt64":
		c.headerSize = 8
	default:
		return nil, fmt.Errorf("%w: header type %q", ErrUnsupportedType, doc.HeaderType)
	}
	switch doc.Compressor {
	case "":
	case zlibCompressor:
		c.compressed = true
	default:
		return nil, fmt.Errorf("unsupported compressor %q", doc.Compressor)
	}
	return c, nil
}

func (c *codec) uint(b []byte) uint64 {
	if c.headerSize == 8 {
		return c.order.Uint64(b)
	}
	return uint64(c.order.Uint32(b))
}

// maxSamples bounds the number of points a file may declare
const maxSamples = 1 << 28

// checkExtent rejects extents with max below min on any axis and extents
// holding more than maxSamples points
func checkExtent(ext []int) error {
	total := uint64(1)
	for a := 0; a < 3; a++ {
		lo, hi := ext[2*a], ext[2*a+1]
		if hi < lo || hi-lo < 0 {
			return fmt.Errorf("%w: axis %d runs from %d to %d", ErrInvalidExtent, a, lo, hi)
		}
		size := uint64(hi-lo) + 1
		if size > maxSamples || total*size > maxSamples {
			return fmt.Errorf("%w: %v holds more than %d points", ErrInvalidExtent, ext, maxSamples)
		}
		total *= size
	}
	return nil
}

// count reads a size field of a block header that may not exceed limit
func (c *codec) count(b []byte, limit int) (int, error) {
	n := c.uint(b)
	if limit < 0 || n > uint64(limit) {
		return 0, fmt.Errorf("%w: header value %d exceeds %d available", ErrTruncated, n, limit)
	}
	return int(n), nil
}

// readPiece decodes the scalars of one piece into its place in the volume
func (c *codec) readPiece(vol *models.Volume, whole []int, p piece) error {
	ext := whole
	if strings.TrimSpace(p.Extent) != "" {
		var err error
		if ext, err = parseInts(p.Extent, 6); err != nil {
			return fmt.Errorf("invalid Extent: %w", err)
		}
		if err := checkExtent(ext); err != nil {
			return fmt.Errorf("Extent: %w", err)
		}
	}
	nx, ny, nz := ext[1]-ext[0]+1, ext[3]-ext[2]+1, ext[5]-ext[4]+1

	arr, err := pickScalars(p.PointData)
	if err != nil {
		return err
	}
	st, err := lookupType(arr.Type)
	if err != nil {
		return err
	}
	comps := arr.NumberOfComponents
	if comps < 1 {
		comps = 1
	}
	if comps > 9 {
		return fmt.Errorf("array %q: %d components", arr.Name, comps)
	}
	count := nx * ny * nz * comps

	values, err := c.readArray(arr, st, count)
	if err != nil {
		return fmt.Errorf("array %q: %w", arr.Name, err)
	}

	vol.ScalarName = arr.Name
	vol.ScalarType = st.name
	i := 0
	for z := ext[4]; z <= ext[5]; z++ {
		for y := ext[2]; y <= ext[3]; y++ {
			for x := ext[0]; x <= ext[1]; x++ {
				gx, gy, gz := x-whole[0], y-whole[2], z-whole[4]
				if gx >= 0 && gx < vol.Width && gy >= 0 && gy < vol.Height && gz >= 0 && gz < vol.Depth {
					vol.Data[vol.Index(gx, gy, gz)] = values[i*comps]
				}
				i++
			}
		}
	}
	return nil
}

func pickScalars(pd dataSection) (dataArray, error) {
	if len(pd.Arrays) == 0 {
		return dataArray{}, ErrNoScalars
	}
	if pd.Scalars != "" {
		for _, a := range pd.Arrays {
			if a.Name == pd.Scalars {
				return a, nil
			}
		}
	}
	return pd.Arrays[0], nil
}

func (c *codec) readArray(arr dataArray, st scalarType, count int) ([]float64, error) {
	var raw []byte
	var err error

	switch arr.Format {
	case "ascii":
		return parseASCII(arr.Content, count)
	case "binary":
		raw, err = c.decodeBase64(strings.Join(strings.Fields(arr.Content), ""))
	case "appended":
		if c.appended == nil {
			return nil, fmt.Errorf("%w: appended array without AppendedData", ErrTruncated)
		}
		if arr.Offset < 0 || arr.Offset > int64(len(c.appended)) {
			return nil, fmt.Errorf("%w: offset %d beyond appended data", ErrTruncated, arr.Offset)
		}
		if c.appendedBase64 {
			raw, err = c.decodeBase64(string(bytes.TrimSpace(c.appended[arr.Offset:])))
		} else {
			raw, err = c.decodeRaw(c.appended[arr.Offset:])
		}
	default:
		return nil, fmt.Errorf("unknown array format %q", arr.Format)
	}
	if err != nil {
		return nil, err
	}

	if len(raw) < count*st.size {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncated, len(raw), count*st.size)
	}
	values := make([]float64, count)
	for i := range values {
		values[i] = st.decode(raw[i*st.size:], c.order)
	}
	return values, nil
}

// decodeRaw reads one header-prefixed block from raw appended data
func (c *codec) decodeRaw(b []byte) ([]byte, error) {
	hs := c.headerSize
	if !c.compressed {
		if len(b) < hs {
			return nil, ErrTruncated
		}
		n := c.uint(b)
		if uint64(len(b)-hs) < n {
			return nil, fmt.Errorf("%w: block of %d bytes", ErrTruncated, n)
		}
		return b[hs : hs+int(n)], nil
	}

	if len(b) < 3*hs {
		return nil, ErrTruncated
	}
	nblocks, err := c.count(b, len(b)/hs-3)
	if err != nil {
		return nil, err
	}
	headerLen := (3 + nblocks) * hs
	header := b[:headerLen]
	_, total, err := c.compressedSizes(header, nblocks, len(b)-headerLen)
	if err != nil {
		return nil, err
	}
	return c.inflate(header, nblocks, b[headerLen:headerLen+total])
}

// decodeBase64 reads one header-prefixed block from base64 text. VTK
// encodes the header and the payload as separate base64 runs.
func (c *codec) decodeBase64(text string) ([]byte, error) {
	hs := c.headerSize
	enc := base64.StdEncoding

	if !c.compressed {
		hchars := base64Len(hs)
		if len(text) < hchars {
			return nil, ErrTruncated
		}
		if text[hchars-1] != '=' {
			// Header and payload were encoded as one run
			all, err := enc.DecodeString(text)
			if err != nil || len(all) < hs {
				return nil, fmt.Errorf("%w: invalid base64 block", ErrTruncated)
			}
			n := c.uint(all)
			if uint64(len(all)-hs) < n {
				return nil, ErrTruncated
			}
			return all[hs : hs+int(n)], nil
		}
		head, err := enc.DecodeString(text[:hchars])
		if err != nil {
			return nil, fmt.Errorf("invalid base64 header: %w", err)
		}
		n, err := c.count(head, len(text)/4*3)
		if err != nil {
			return nil, err
		}
		dchars := base64Len(n)
		if len(text) < hchars+dchars {
			return nil, ErrTruncated
		}
		payload, err := enc.DecodeString(text[hchars : hchars+dchars])
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		if len(payload) < n {
			return nil, ErrTruncated
		}
		return payload[:n], nil
	}

	first := base64Len(3 * hs)
	if len(text) < first {
		return nil, ErrTruncated
	}
	prefix, err := enc.DecodeString(text[:first])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 header: %w", err)
	}
	nblocks, err := c.count(prefix, len(text)/4*3/hs)
	if err != nil {
		return nil, err
	}
	hchars := base64Len((3 + nblocks) * hs)
	if len(text) < hchars {
		return nil, ErrTruncated
	}
	header, err := enc.DecodeString(text[:hchars])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 header: %w", err)
	}
	_, total, err := c.compressedSizes(header, nblocks, len(text)/4*3)
	if err != nil {
		return nil, err
	}
	dchars := base64Len(total)
	if len(text) < hchars+dchars {
		return nil, ErrTruncated
	}
	payload, err := enc.DecodeString(text[hchars : hchars+dchars])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return c.inflate(header, nblocks, payload)
}

// compressedSizes returns the compressed size of every block and their sum,
// which must fit into avail bytes
func (c *codec) compressedSizes(header []byte, nblocks, avail int) ([]int, int, error) {
	hs := c.headerSize
	sizes := make([]int, nblocks)
	total := 0
	for i := range sizes {
		n, err := c.count(header[(3+i)*hs:], avail-total)
		if err != nil {
			return nil, 0, fmt.Errorf("block %d: %w", i, err)
		}
		sizes[i] = n
		total += n
	}
	return sizes, total, nil
}

// inflate decompresses the zlib blocks described by a compression header
func (c *codec) inflate(header []byte, nblocks int, payload []byte) ([]byte, error) {
	hs := c.headerSize
	blockSize := c.uint(header[hs:])
	lastSize := c.uint(header[2*hs:])
	sizes, _, err := c.compressedSizes(header, nblocks, len(payload))
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	pos := 0
	for i, size := range sizes {
		want := blockSize
		if i == nblocks-1 && lastSize != 0 {
			want = lastSize
		}
		zr, err := zlib.NewReader(bytes.NewReader(payload[pos : pos+size]))
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		n, err := io.Copy(&out, zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		if uint64(n) != want {
			return nil, fmt.Errorf("%w: block %d inflated to %d bytes, want %d", ErrTruncated, i, n, want)
		}
		pos += size
	}
	return out.Bytes(), nil
}

func base64Len(n int) int {
	return (n + 2) / 3 * 4
}

func parseASCII(content string, count int) ([]float64, error) {
	fields := strings.Fields(content)
	if len(fields) < count {
		return nil, fmt.Errorf("%w: have %d values, need %d", ErrTruncated, len(fields), count)
	}
	values := make([]float64, count)
	for i := range values {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", fields[i], err)
		}
		values[i] = v
	}
	return values, nil
}

func parseInts(s string, n int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d integers, got %q", n, s)
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseVec(s string, def mgl64.Vec3) (mgl64.Vec3, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return def, fmt.Errorf("expected 3 numbers, got %q", s)
	}
	var v mgl64.Vec3
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return def, err
		}
		v[i] = x
	}
	return v, nil
}
