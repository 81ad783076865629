package multipath

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionFile string

// Version is the current version of multipathd.
var Version = strings.TrimSpace(versionFile)
