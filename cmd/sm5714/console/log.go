package console

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

const PictoBattery = "🔋"
const PictoPlug = "🔌"
const PictoThermometer = "🌡"

var writer io.Writer = os.Stdout
var errWriter io.Writer = os.Stderr

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

// NewLogger builds the charm backed slog logger used by every command.
func NewLogger(verbose bool) *slog.Logger {
	charm := chlog.NewWithOptions(errWriter, chlog.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	charm.SetColorProfile(termenv.TrueColor)
	charm.SetLevel(chlog.InfoLevel)
	if verbose {
		charm.SetLevel(chlog.DebugLevel)
	}
	return slog.New(charm)
}

func Warnf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}

func Writer() io.Writer {
	return writer
}
