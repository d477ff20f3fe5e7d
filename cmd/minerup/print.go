package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func printOK(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleOK.Render(fmt.Sprintf("[minerup] "+format, args...)))
}

func printWarn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleWarn.Render(fmt.Sprintf("[minerup] "+format, args...)))
}

func printFail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleFail.Render(fmt.Sprintf("[minerup] "+format, args...)))
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
