package common

import (
	"fmt"
	"sort"
	"strings"
)

// ReportWidth is the separator width of console reports
const ReportWidth = 100

// PrintHeader prints a title between two rules of '='
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", width))
}

// PrintFooter prints a closing summary line between two rules of '='
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintSection opens a boxed section; details are printed as "│  key: value" lines
func PrintSection(title string, details map[string]string, width int) {
	fmt.Printf("\n┌─ %s\n", title)
	for _, key := range sortedKeys(details) {
		fmt.Printf("│  %s: %s\n", key, details[key])
	}
	fmt.Println("├" + strings.Repeat("─", width-2))
}

// BoxPrefix returns the box-drawing prefix for a list item inside a section
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
