package cli

import "strings"

// MaskValue hides all but the tail of a password.
//
//	| Length | Format       | Example  |
//	|--------|--------------|----------|
//	| 1-4    | All *        | ****     |
//	| 5-8    | Show last 2  | ******XY |
//	| 9+     | Show last 4  | ****WXYZ |
func MaskValue(value string) string {
	runes := []rune(value)
	length := len(runes)

	var shown int
	switch {
	case length == 0:
		return ""
	case length <= 4:
		shown = 0
	case length <= 8:
		shown = 2
	default:
		shown = 4
	}
	return strings.Repeat("*", length-shown) + string(runes[length-shown:])
}
