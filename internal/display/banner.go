package display

import (
	"fmt"
	"io"

	"github.com/backmassage/fishframes/internal/term"
)

const banner = `  __ _     _      __
 / _(_)___| |__  / _|_ __ __ _ _ __ ___   ___  ___
| |_| / __| '_ \| |_| '__/ _` + "`" + ` | '_ ` + "`" + ` _ \ / _ \/ __|
|  _| \__ \ | | |  _| | | (_| | | | | | |  __/\__ \
|_| |_|___/_| |_|_| |_|  \__,_|_| |_| |_|\___||___/
`

// PrintBanner prints the ASCII art banner and version; uses Cyan if colors
// are enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Paint(term.Cyan, banner))
	fmt.Fprintf(w, "  version %s\n\n", version)
}
