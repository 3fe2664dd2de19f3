package arraystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// matrixFile is the on-disk form of a dense array: row-major data with its shape.
type matrixFile struct {
	Shape []int     `msgpack:"shape"`
	Data  []float64 `msgpack:"data"`
}

// WriteMsgpack encodes v to path, creating parent directories. The file is
// written to a temporary name in the same directory and renamed into place,
// so readers never observe a partial file.
func WriteMsgpack(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := msgpack.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// ReadMsgpack decodes path into v. A file that does not exist yields an error
// wrapping domain.ErrMissingInput.
func ReadMsgpack(path string, v any) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrMissingInput, path)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteMatrix persists m at path.
func WriteMatrix(path string, m domain.Matrix) error {
	return WriteMsgpack(path, matrixFile{Shape: []int{m.Rows, m.Cols}, Data: m.Data})
}

// ReadMatrix loads a matrix written by WriteMatrix.
func ReadMatrix(path string) (domain.Matrix, error) {
	var mf matrixFile
	if err := ReadMsgpack(path, &mf); err != nil {
		return domain.Matrix{}, err
	}
	if len(mf.Shape) != 2 {
		return domain.Matrix{}, fmt.Errorf("%s: shape %v is not two-dimensional", path, mf.Shape)
	}
	rows, cols := mf.Shape[0], mf.Shape[1]
	if rows < 0 || cols < 0 || rows*cols != len(mf.Data) {
		return domain.Matrix{}, fmt.Errorf("%s: shape %v does not match %d values", path, mf.Shape, len(mf.Data))
	}
	if mf.Data == nil {
		mf.Data = []float64{}
	}
	return domain.Matrix{Rows: rows, Cols: cols, Data: mf.Data}, nil
}
