package bot

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultEntries = 10
	maxEntries     = 50
)

// ParseLimitArg reads the optional entry count of /entries.
func ParseLimitArg(args string) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return defaultEntries, nil
	}
	n, err := strconv.Atoi(strings.Fields(s)[0])
	if err != nil || n < 1 || n > maxEntries {
		return 0, fmt.Errorf("usage: /entries [1-%d]", maxEntries)
	}
	return n, nil
}
