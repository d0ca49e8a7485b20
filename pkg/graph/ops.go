package graph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrBadOperationToken is returned by [ParseOperation] for tokens that do
// not have the form "script::opN". A malformed token fails only the lookup
// it occurs in; it never aborts graph construction or a query.
var ErrBadOperationToken = errors.New("malformed operation token")

// opPrefix precedes the statement index in an operation token.
const opPrefix = "op"

// Operation formats a "script::opN" token for statement index in script.
func Operation(script string, index int) string {
	return script + idSeparator + opPrefix + strconv.Itoa(index)
}

// ParseOperation splits a "script::opN" token into its script name and
// statement index. The split is on the last "::" so that script names
// containing the separator still parse.
func ParseOperation(token string) (script string, index int, err error) {
	sep := strings.LastIndex(token, idSeparator)
	if sep < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrBadOperationToken, token)
	}
	script = token[:sep]
	suffix := token[sep+len(idSeparator):]
	if script == "" || !strings.HasPrefix(suffix, opPrefix) {
		return "", 0, fmt.Errorf("%w: %q", ErrBadOperationToken, token)
	}
	index, convErr := strconv.Atoi(suffix[len(opPrefix):])
	if convErr != nil || index < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrBadOperationToken, token)
	}
	return script, index, nil
}

// operationTokens formats one token per statement index.
func operationTokens(script string, indices []int) []string {
	tokens := make([]string, len(indices))
	for i, idx := range indices {
		tokens[i] = Operation(script, idx)
	}
	return tokens
}

// sortOperations orders tokens by script name, then numeric statement
// index. Malformed tokens sort lexicographically after well-formed ones
// with the same prefix, which keeps the order stable without failing.
func sortOperations(tokens []string) {
	slices.SortFunc(tokens, func(a, b string) int {
		sa, ia, errA := ParseOperation(a)
		sb, ib, errB := ParseOperation(b)
		if errA != nil || errB != nil {
			return strings.Compare(a, b)
		}
		if c := strings.Compare(sa, sb); c != 0 {
			return c
		}
		return ia - ib
	})
}
