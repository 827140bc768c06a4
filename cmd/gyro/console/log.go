package console

import (
	"fmt"
	"io"
	"os"
)

const PictoGyro = "🌀"
const PictoThermometer = "🌡"
const PictoPin = "📌"
const PictoStop = "🚫"
const PictoFinish = "🏁"
const PictoKey = "🔑"

var writer io.Writer = os.Stdout
var errWriter io.Writer = os.Stderr

func Warnf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}

// Writer returns the standard output destination, for encoders and table writers.
func Writer() io.Writer {
	return writer
}
