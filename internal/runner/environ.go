package runner

import "os"

// environ is swapped in tests to keep job environments deterministic.
var environ = os.Environ
