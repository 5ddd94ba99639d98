package ake

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pqops/ake-orchestrator/interfaces"
)

// Supported parameter-set levels. Hints outside this range are clamped
// rather than rejected.
const (
	minLevel = 1
	maxLevel = 5
)

// resolveLevel turns an optional numeric/string level hint into a supported
// level for the scheme. An absent or unparseable hint yields the scheme's
// default level.
func resolveLevel(scheme interfaces.Scheme, hint string) int {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return scheme.DefaultLevel()
	}

	parsed, err := strconv.ParseFloat(hint, 64)
	if err != nil {
		return scheme.DefaultLevel()
	}

	level := int(parsed)
	if level < minLevel {
		return minLevel
	}
	if level > maxLevel {
		return maxLevel
	}
	return level
}

// rotationAlg derives the rotation service's algorithm identifier for a
// scheme at a given level, e.g. "dilithium-3".
func rotationAlg(scheme interfaces.Scheme, level int) string {
	return fmt.Sprintf("%s-%d", scheme, level)
}
