package detect

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadProperties reads additional detect properties from a file, one per
// line. Blank lines and lines starting with '#' are ignored; surrounding
// whitespace is trimmed.
func LoadProperties(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detect properties file: %w", err)
	}
	defer f.Close()

	var props []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		props = append(props, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read detect properties file: %w", err)
	}
	return props, nil
}
