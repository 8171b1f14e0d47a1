package static

import _ "embed"

// IndexHTML contains the embedded landing page served at "/".
//
//go:embed index.html
var IndexHTML string
