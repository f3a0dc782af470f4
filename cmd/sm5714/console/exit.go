package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func Exit(code int, msg string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// Fail reports err in red with exit code 1.
func Fail(msg string, err error) cli.ExitCoder {
	return Exit(1, "%s: %s", msg, Red(err))
}
