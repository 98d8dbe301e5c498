package utils

import (
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

var Log *charmlog.Logger

func Init() {
	Log = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	styles := charmlog.DefaultStyles()
	styles.Levels[charmlog.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#006400")).
		Foreground(lipgloss.Color("#90EE90")).Bold(true)

	styles.Levels[charmlog.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#8B8000")).
		Foreground(lipgloss.Color("#FFFFE0")).Bold(true)

	styles.Levels[charmlog.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#8B0000")).
		Foreground(lipgloss.Color("#FFC0CB")).Bold(true)

	styles.Levels[charmlog.FatalLevel] = lipgloss.NewStyle().
		SetString("FATAL").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#000000")).
		Foreground(lipgloss.Color("#FF0000")).Bold(true)
	Log.SetStyles(styles)
}

func init() {
	// Packages log before main runs in tests; make sure Log is never nil.
	Init()
}
