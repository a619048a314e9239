//go:build !linux

package scan

func hasRawSocketCapability() bool {
	return false
}
