package registration

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// deriveHandlerKey and deriveExecKey must be stable across restarts for the
// same declaration, so that re-registering the same handlers on the next
// boot lands on the same store keys and reuses, rather than duplicates,
// existing rows.

func deriveHandlerKey(h HandlerDescriptor) string {
	return hashParts(h.BeanClassName, h.BeanName, h.MethodName)
}

func deriveExecKey(h HandlerDescriptor, spec ExecutionSpec, index int) string {
	return hashParts(h.BeanClassName, h.MethodName, spec.CronExpr, strconv.Itoa(index))
}

func hashParts(parts ...string) string {
	hasher := fnv.New64a()
	for _, p := range parts {
		_, _ = hasher.Write([]byte(p))
		_, _ = hasher.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", hasher.Sum64())
}
