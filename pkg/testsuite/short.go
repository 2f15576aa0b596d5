package testsuite

import (
	"reflect"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

func (s *BaseSuite) SkipIfShort() {
	if testing.Short() {
		s.T().Skip("integration suite skipped in -short mode")
	}
}

// isNilContainer catches typed nil pointers stored in the interface.
func isNilContainer(c testcontainers.Container) bool {
	if c == nil {
		return true
	}

	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
