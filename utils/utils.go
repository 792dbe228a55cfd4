package utils

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

// WriteFile writes buf to a file whose path is indicated by filename.
// It refuses to overwrite an existing file; artifacts that may be
// replaced must go through WriteFileAtomic instead.
func WriteFile(filename string, buf []byte, perm os.FileMode) error {
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("Can't write file. File '%s' already exists\n",
			filename)
	}

	if err := ioutil.WriteFile(filename, buf, perm); err != nil {
		return err
	}
	return nil
}

// WriteFileAtomic writes buf to a temporary file in the target
// directory and renames it into place, so a crash mid-write never
// leaves a half-written file visible to a subsequent reader.
func WriteFileAtomic(filename string, buf []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmp, err := ioutil.TempFile(dir, filepath.Base(filename)+".tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filename)
}

// ResolvePath returns the absolute path of file.
// This will use other as a base path if file is just a file name.
func ResolvePath(file, other string) string {
	if !filepath.IsAbs(file) {
		file = filepath.Join(filepath.Dir(other), file)
	}
	return file
}
