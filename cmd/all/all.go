// Package all registers all subcommands.
package all

import (
	_ "github.com/sagan/genmeta/cmd/indeximages"
	_ "github.com/sagan/genmeta/cmd/parsemeta"
)
