package junit

import (
	"io"
	"os"
	"path/filepath"

	jr "github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/pkg/errors"

	"github.com/gzhole/hardenedsuite/internal/config"
)

// Write emits suites as an indented JUnit XML document with an XML header.
func Write(w io.Writer, suites *jr.Testsuites) error {
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"); err != nil {
		return err
	}
	return suites.WriteXML(w)
}

// WriteFile writes suites to path, creating parent directories as needed.
func WriteFile(path string, suites *jr.Testsuites) error {
	if err := config.EnsureDir(filepath.Dir(path)); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := Write(f, suites); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}
