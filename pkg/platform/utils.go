// pkg/platform/utils.go
package platform

// Contains checks if a strategy list contains a value
func Contains(order []Strategy, s Strategy) bool {
	for _, o := range order {
		if o == s {
			return true
		}
	}
	return false
}
