package utils

import (
	"fmt"
	"strings"
)

// GenerateNumberedName disambiguates a sibling name by inserting " (n)"
// before the file extension. n == 0 returns the name unchanged; names
// without an extension (folders in particular) get the suffix appended to
// the base name.
//
//	GenerateNumberedName("a.txt", 1)   -> "a (1).txt"
//	GenerateNumberedName("archive", 2) -> "archive (2)"
func GenerateNumberedName(original string, n int) string {
	if n == 0 {
		return original
	}

	idx := strings.LastIndex(original, ".")
	if idx < 0 {
		return fmt.Sprintf("%s (%d)", original, n)
	}

	base := original[:idx]
	extension := original[idx+1:]
	if extension == "" {
		return fmt.Sprintf("%s (%d)", base, n)
	}
	return fmt.Sprintf("%s (%d).%s", base, n, extension)
}
