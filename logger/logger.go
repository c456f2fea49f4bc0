// Package logger provides structured logging with styled output
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var useUI bool

// SetUIMode enables UI mode (logs go to TUI instead of stdout)
func SetUIMode(enabled bool) {
	useUI = enabled
}

var (
	// Box drawing characters for clean borders
	horizontalLine = "─"
	verticalLine   = "│"
	topLeft        = "┌"
	topRight       = "┐"
	bottomLeft     = "└"
	bottomRight    = "┘"
	leftT          = "├"
	rightT         = "┤"

	// Charm color palette - professional and cohesive
	charmPink   = lipgloss.Color("#FF69B4") // Charm's signature pink
	charmCyan   = lipgloss.Color("#42D9C8") // Bright cyan
	charmGreen  = lipgloss.Color("#73F59F") // Success green
	charmYellow = lipgloss.Color("#FFE66D") // Warning yellow
	charmRed    = lipgloss.Color("#FF6B9D") // Error pink-red
	charmPurple = lipgloss.Color("#B794F6") // Accent purple
	charmGray   = lipgloss.Color("#626262") // Muted gray
	charmWhite  = lipgloss.Color("#ECEFF4") // Clean white

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(charmPink).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(charmCyan)

	infoStyle = lipgloss.NewStyle().
			Foreground(charmWhite)

	warnStyle = lipgloss.NewStyle().
			Foreground(charmYellow)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(charmRed)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(charmGreen)

	mutedStyle = lipgloss.NewStyle().
			Foreground(charmGray)

	keyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(charmPurple)

	valueStyle = lipgloss.NewStyle().
			Foreground(charmCyan)

	borderStyle = lipgloss.NewStyle().
			Foreground(charmPink)

	// Structured logger for HTTP requests
	httpLogger *log.Logger
)

func init() {
	// Initialize HTTP logger with Charm's log
	httpLogger = log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "🌐 ",
	})
	httpLogger.SetLevel(log.InfoLevel)
	// Use a more subtle style for HTTP logs
	styles := log.DefaultStyles()
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		Foreground(charmGray)
	styles.Keys["method"] = lipgloss.NewStyle().
		Foreground(charmCyan).
		Bold(true)
	styles.Values["method"] = lipgloss.NewStyle().
		Foreground(charmCyan)
	httpLogger.SetStyles(styles)
}

// PrintBanner displays the startup banner
func PrintBanner(version, buildTime, upstream string) {
	width := 62

	topBorder := borderStyle.Render(
		topLeft + strings.Repeat(horizontalLine, width-2) + topRight,
	)
	fmt.Println(topBorder)

	title := "🌊  FLOOD.LIVE Station Monitor"
	titleRendered := titleStyle.Render(title)
	titleWidth := lipgloss.Width(title)
	leftPad := (width - titleWidth - 2) / 2
	rightPad := width - titleWidth - leftPad - 2

	fmt.Print(borderStyle.Render(verticalLine))
	fmt.Print(strings.Repeat(" ", leftPad))
	fmt.Print(titleRendered)
	fmt.Print(strings.Repeat(" ", rightPad))
	fmt.Println(borderStyle.Render(verticalLine))

	// Separator
	fmt.Println(borderStyle.Render(leftT + strings.Repeat(horizontalLine, width-2) + rightT))

	printInfoLine("Version", version, width)
	if buildTime != "" {
		printInfoLine("Built", buildTime, width)
	}
	printInfoLine("Upstream", upstream, width)

	// Bottom border
	fmt.Println(borderStyle.Render(bottomLeft + strings.Repeat(horizontalLine, width-2) + bottomRight))
	fmt.Println()
}

func printInfoLine(key, value string, width int) {
	keyRendered := keyStyle.Render(key + ":")
	valueRendered := valueStyle.Render(value)
	// Account for ANSI codes in width calculation
	lineWidth := 2 + lipgloss.Width(key+":") + 1 + lipgloss.Width(value)
	padding := width - lineWidth - 2
	if padding < 0 {
		padding = 0
	}
	fmt.Print(borderStyle.Render(verticalLine))
	fmt.Print("  ")
	fmt.Print(keyRendered)
	fmt.Print(" ")
	fmt.Print(valueRendered)
	fmt.Print(strings.Repeat(" ", padding))
	fmt.Println(borderStyle.Render(verticalLine))
}

// Section prints a section header with a decorative divider
func Section(title string) {
	fmt.Println()
	divider := mutedStyle.Render("━━━━")
	header := headerStyle.Render("▸ " + title)
	fmt.Printf("%s %s\n", divider, header)
}

// Log is the interface for sending logs (will be set by main if using UI)
var Log func(string)

func logOrPrint(msg string) {
	if Log != nil && useUI {
		Log(msg)
	} else {
		fmt.Println(msg)
	}
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logOrPrint(infoStyle.Render("  " + msg))
}

// Success prints a success message
func Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logOrPrint(successStyle.Render("  ✓ " + msg))
}

// Warn prints a warning message
func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logOrPrint(warnStyle.Render("  ⚠ " + msg))
}

// Error logs an error message. If the first argument is an error, it is
// also sent to Sentry.
//
//	logger.Error("something went wrong")
//	logger.Error(err)
//	logger.Error(err, "failed to load: %v", err)
func Error(args ...interface{}) {
	msg, err := parseArgs(args)
	logOrPrint(errorStyle.Render("  ✗ " + msg))

	if err != nil && captureException != nil {
		captureException(err)
	}
}

// Fatal logs like Error and exits the program
func Fatal(args ...interface{}) {
	Error(args...)
	os.Exit(1)
}

// parseArgs splits Error/Fatal arguments into the rendered message and the
// optional leading error
func parseArgs(args []interface{}) (string, error) {
	if len(args) == 0 {
		return "", nil
	}

	err, isErr := args[0].(error)
	rest := args
	if isErr {
		if len(args) == 1 {
			return err.Error(), err
		}
		rest = args[1:]
	}

	format, ok := rest[0].(string)
	switch {
	case !ok && isErr:
		return err.Error(), err
	case !ok:
		return fmt.Sprintf("%v", rest[0]), nil
	case len(rest) == 1:
		return format, err
	default:
		return fmt.Sprintf(format, rest[1:]...), err
	}
}

// captureException is a function pointer that can be set to capture exceptions
// This allows us to avoid importing sentry-go in the logger package
// The function signature matches sentry.CaptureException which returns *sentry.EventID
var captureException func(error) interface{}

// SetSentryCaptureException sets the function to use for capturing exceptions to Sentry
func SetSentryCaptureException(fn func(error) interface{}) {
	captureException = fn
}

// Muted prints a muted/debug message
func Muted(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logOrPrint(mutedStyle.Render("  " + msg))
}

// CatalogSummary describes one station catalog refresh
type CatalogSummary struct {
	Duration   time.Duration
	Records    int
	Labelled   int
	Mapped     int
	Discarded  int
	Duplicates int
	Err        error
}

// Print displays a formatted summary of the refresh
func (c CatalogSummary) Print() {
	duration := mutedStyle.Render(fmt.Sprintf("(%v)", c.Duration.Round(time.Millisecond)))

	if c.Err != nil {
		logOrPrint(fmt.Sprintf("  %s Catalog refresh failed %s • %s",
			errorStyle.Render("✗"), duration, errorStyle.Render(c.Err.Error())))
		return
	}

	icon := successStyle.Render("✓")
	if c.Discarded > 0 || c.Duplicates > 0 {
		icon = warnStyle.Render("⚠")
	}

	summary := fmt.Sprintf("  %s Catalog refreshed %s • %s stations • %s mapped",
		icon, duration,
		successStyle.Render(fmt.Sprintf("%d", c.Labelled)),
		valueStyle.Render(fmt.Sprintf("%d", c.Mapped)))

	if c.Discarded > 0 {
		summary += fmt.Sprintf(" • %s discarded", mutedStyle.Render(fmt.Sprintf("%d", c.Discarded)))
	}
	if c.Duplicates > 0 {
		summary += fmt.Sprintf(" • %s duplicate labels", warnStyle.Render(fmt.Sprintf("%d", c.Duplicates)))
	}

	logOrPrint(summary)
}

// ServerInfo prints server startup information
type ServerInfo struct {
	Port          string
	UpstreamURL   string
	CatalogTTL    time.Duration
	ReadingsLimit int
}

// Print displays formatted server configuration information
func (s ServerInfo) Print() {
	Section("Configuration")

	fmt.Printf("  %s %s %s\n",
		mutedStyle.Render("🔌"),
		keyStyle.Render("Port:"),
		valueStyle.Render(s.Port))
	fmt.Printf("  %s %s %s\n",
		mutedStyle.Render("🛰"),
		keyStyle.Render("Upstream:"),
		valueStyle.Render(s.UpstreamURL))
	fmt.Printf("  %s %s %s\n",
		mutedStyle.Render("⏱"),
		keyStyle.Render("Catalog TTL:"),
		valueStyle.Render(s.CatalogTTL.String()))
	fmt.Printf("  %s %s %s\n",
		mutedStyle.Render("📈"),
		keyStyle.Render("Readings:"),
		valueStyle.Render(fmt.Sprintf("%d per station", s.ReadingsLimit)))
}

// Shutdown prints shutdown message
func Shutdown() {
	fmt.Println()
	shutdownMsg := lipgloss.NewStyle().
		Foreground(charmYellow).
		Bold(true).
		Render("  ⏸  Shutting down gracefully...")
	fmt.Println(shutdownMsg)
}

// HTTPLogger returns the configured HTTP logger for middleware
func HTTPLogger() *log.Logger {
	return httpLogger
}
