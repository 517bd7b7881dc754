package logger

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Console prints the user-facing build lines. Unlike Logger it writes
// plain lines without timestamps, decorated with colored badges.
type Console struct {
	out    io.Writer
	errOut io.Writer
	mu     sync.Mutex
}

// NewConsole creates a console printing to out, with error detail going to errOut
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

// DoneLabel is the green badge printed when a step finishes
func DoneLabel() string {
	return color.New(color.BgGreen, color.FgWhite).Sprint(" DONE ") + " "
}

// ErrorLabel is the red badge printed in front of failures
func ErrorLabel() string {
	return color.New(color.BgRed, color.FgWhite).Sprint(" ERROR ") + " "
}

// OkayLabel is the blue badge printed once every task succeeded
func OkayLabel() string {
	return color.New(color.BgBlue, color.FgWhite).Sprint(" OKAY ") + " "
}

// Println writes a line to the standard stream
func (c *Console) Println(a ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

// Printf writes formatted text to the standard stream
func (c *Console) Printf(format string, a ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, a...)
}

// Write implements io.Writer on the standard stream
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// Done prints the DONE badge on its own line
func (c *Console) Done() {
	c.Printf("\n%s\n\n", DoneLabel())
}

// Okay prints the OKAY badge followed by message
func (c *Console) Okay(message string) {
	c.Printf("%s%s\n\n", OkayLabel(), message)
}

// Failure prints the ERROR badge with message on the standard stream and
// the error detail on the error stream
func (c *Console) Failure(message string, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\n  %s%s\n", ErrorLabel(), message)
	if detail != "" {
		fmt.Fprintf(c.errOut, "\n%s\n\n", detail)
	}
}
