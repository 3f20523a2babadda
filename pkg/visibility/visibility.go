// Package visibility classifies symbol names that bypass unit isolation and
// decides which names a unit may consume from other units.
package visibility

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapark/pkg/unit"
)

// Platform-generated proxy prefixes. Such types are synthesized by the
// platform where reflective invocation happens and must resolve in the
// domain that generated them.
var proxyPrefixes = []string{
	"sun.reflect.GeneratedMethodAccessor",
	"sun.reflect.GeneratedConstructorAccessor",
	"sun.reflect.GeneratedSerializationConstructorAccessor",
}

const (
	// BootstrapSymbol is the framework entry point shared by every unit.
	BootstrapSymbol = "com.leapstack.leapark.bootstrap.LeaparkBootstrap"

	// SPIPackagePrefix covers the framework service contracts.
	SPIPackagePrefix = "com.leapstack.leapark.spi"
)

// ErrUnknownUnit is matched by UnknownUnitError.
var ErrUnknownUnit = errors.New("unknown unit")

// ProxyPrefixes returns a copy of the platform-generated proxy prefixes.
func ProxyPrefixes() []string {
	return append([]string(nil), proxyPrefixes...)
}

// IsPlatformGeneratedProxy reports whether name is a platform-generated proxy.
func IsPlatformGeneratedProxy(name string) bool {
	for _, prefix := range proxyPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// IsFrameworkContract reports whether name belongs to the contract between
// the framework and its units. Those names always resolve to one domain.
func IsFrameworkContract(name string) bool {
	return name == BootstrapSymbol || strings.HasPrefix(name, SPIPackagePrefix)
}

// IsImportable reports whether unitID declared an import prefix matching name.
// Asking about an unregistered unit is a caller bug and returns an
// UnknownUnitError.
func IsImportable(reg unit.Registry, unitID, name string) (bool, error) {
	u, ok := reg.UnitByName(unitID)
	if !ok || u == nil {
		return false, &UnknownUnitError{ID: unitID}
	}
	return MatchesAny(u.Imports, name), nil
}

// MatchesAny reports whether any of prefixes is a literal prefix of name.
func MatchesAny(prefixes []string, name string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// UnknownUnitError is returned when a query names an unregistered unit.
type UnknownUnitError struct {
	ID string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unit %q is not registered", e.ID)
}

// Is lets errors.Is match ErrUnknownUnit.
func (e *UnknownUnitError) Is(target error) bool {
	return target == ErrUnknownUnit
}
