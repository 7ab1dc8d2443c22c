//go:build !(darwin || linux || freebsd)

package yasdi

import (
	"runtime"

	"github.com/pkg/errors"
)

func LibraryFileName(name string) string {
	return name + ".dll"
}

func LoadDriverLibrary(path string) (DriverLibrary, error) {
	return nil, errors.Errorf("yasdi: loading native libraries is not supported on %s", runtime.GOOS)
}

func LoadMasterLibrary(path string) (MasterLibrary, error) {
	return nil, errors.Errorf("yasdi: loading native libraries is not supported on %s", runtime.GOOS)
}
