package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcncl/jsonbuilder/internal/errors"
)

// ParsePath splits a dotted 0-based field path such as "2.0.1".
func ParsePath(path string) ([]int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.NewSessionError("field path is empty", errors.ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	indices := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, errors.NewSessionError(fmt.Sprintf("invalid field path '%s'", path), errors.ErrInvalidPath)
		}
		indices[i] = n
	}
	return indices, nil
}

// SplitPath returns the parent path and the last index of path.
func SplitPath(path string) (string, int, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return "", 0, err
	}
	last := len(indices) - 1
	return JoinIndices(indices[:last]), indices[last], nil
}

// JoinIndices builds a dotted path
func JoinIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// JoinPath appends index to parent
func JoinPath(parent string, index int) string {
	if parent == "" {
		return strconv.Itoa(index)
	}
	return parent + "." + strconv.Itoa(index)
}
