// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package vectorstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

const (
	// IDsFileName holds the ordered JSON array of item ids.
	IDsFileName = "item_ids.json"

	// VectorsFileName holds the float32 matrix.
	VectorsFileName = "vectors.bin"

	matrixMagic   = "STZV"
	matrixVersion = uint32(1)
)

// matrixHeader precedes the row-major little-endian float32 payload.
type matrixHeader struct {
	Magic   [4]byte
	Version uint32
	Rows    uint64
	Dim     uint32
}

// FileCache persists snapshots as an id file and a matrix file. The pair is
// only meaningful together: Load rejects a pair whose row count disagrees with
// the id list.
type FileCache struct {
	dir string
}

// NewFileCache returns a cache rooted at dir. The directory is created on the
// first Save.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// CachedData is the decoded cache pair.
type CachedData struct {
	IDs  []int64
	Rows [][]float32
	Dim  int
}

// Save writes ids and rows atomically. The matrix is written first so a crash
// between the two renames leaves an id list that no longer matches the
// matrix, which Load reports as corrupt.
func (c *FileCache) Save(ids []int64, rows [][]float32, dim int) error {
	if len(ids) != len(rows) {
		return fmt.Errorf("save vector cache: %d ids for %d rows", len(ids), len(rows))
	}
	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if err := c.writeAtomic(VectorsFileName, func(w io.Writer) error {
		return writeMatrix(w, rows, dim)
	}); err != nil {
		return err
	}

	return c.writeAtomic(IDsFileName, func(w io.Writer) error {
		if ids == nil {
			ids = []int64{}
		}
		return json.NewEncoder(w).Encode(ids)
	})
}

// Load reads the cache pair. It returns ErrCacheMissing when either file is
// absent and ErrCacheCorrupt when they cannot be decoded or disagree.
func (c *FileCache) Load() (*CachedData, error) {
	idsFile, err := os.Open(filepath.Join(c.dir, IDsFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCacheMissing
		}
		return nil, fmt.Errorf("open id file: %w", err)
	}
	defer idsFile.Close()

	var ids []int64
	if err := json.NewDecoder(idsFile).Decode(&ids); err != nil {
		return nil, fmt.Errorf("%w: decode id file: %w", ErrCacheCorrupt, err)
	}

	matFile, err := os.Open(filepath.Join(c.dir, VectorsFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCacheMissing
		}
		return nil, fmt.Errorf("open matrix file: %w", err)
	}
	defer matFile.Close()

	info, err := matFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat matrix file: %w", err)
	}

	rows, dim, err := readMatrix(bufio.NewReader(matFile), info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("%w: %d ids but %d matrix rows", ErrCacheCorrupt, len(ids), len(rows))
	}

	return &CachedData{IDs: ids, Rows: rows, Dim: dim}, nil
}

func (c *FileCache) writeAtomic(name string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(c.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(c.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func writeMatrix(w io.Writer, rows [][]float32, dim int) error {
	hdr := matrixHeader{Version: matrixVersion, Rows: uint64(len(rows)), Dim: uint32(dim)}
	copy(hdr.Magic[:], matrixMagic)
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != dim {
			return fmt.Errorf("row %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(row), dim)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return nil
}

// maxCachedRows guards against allocating from a garbage header.
const maxCachedRows = 1 << 26

// readMatrix decodes a matrix file of the given total size. The header must
// describe exactly the payload that follows it.
func readMatrix(r io.Reader, size int64) ([][]float32, int, error) {
	var hdr matrixHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, 0, fmt.Errorf("read matrix header: %w", err)
	}
	if string(hdr.Magic[:]) != matrixMagic {
		return nil, 0, fmt.Errorf("bad matrix magic %q", hdr.Magic[:])
	}
	if hdr.Version != matrixVersion {
		return nil, 0, fmt.Errorf("unsupported matrix version %d", hdr.Version)
	}
	if hdr.Rows > maxCachedRows {
		return nil, 0, fmt.Errorf("implausible row count %d", hdr.Rows)
	}
	// The header was read in full, so size covers at least the header.
	payload := uint64(size) - uint64(binary.Size(hdr))
	if hdr.Rows*uint64(hdr.Dim)*4 != payload {
		return nil, 0, fmt.Errorf("header describes %d rows of dim %d, file holds %d payload bytes",
			hdr.Rows, hdr.Dim, payload)
	}

	dim := int(hdr.Dim)
	rows := make([][]float32, hdr.Rows)
	for i := range rows {
		row := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, 0, fmt.Errorf("read matrix row %d: %w", i, err)
		}
		rows[i] = row
	}
	return rows, dim, nil
}
