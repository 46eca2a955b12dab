package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDisposition is returned for an unrecognised action name
var ErrUnknownDisposition = errors.New("unknown disposition")

// Disposition is the terminal action applied to a held message
type Disposition int

const (
	DispositionPass Disposition = iota
	DispositionShow
	DispositionRelease
	DispositionWhitelist
	DispositionBlacklist
	DispositionDelete
)

var dispositionNames = map[Disposition]string{
	DispositionPass:      "pass",
	DispositionShow:      "show",
	DispositionRelease:   "release",
	DispositionWhitelist: "whitelist",
	DispositionBlacklist: "blacklist",
	DispositionDelete:    "delete",
}

func (d Disposition) String() string {
	if name, ok := dispositionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("disposition(%d)", int(d))
}

// ParseDisposition maps a name such as "release" to its Disposition
func ParseDisposition(name string) (Disposition, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d, n := range dispositionNames {
		if n == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDisposition, name)
}

// Mutates reports whether the disposition writes to a sink or the queue
func (d Disposition) Mutates() bool {
	return d != DispositionPass && d != DispositionShow
}
