package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Faint text is illegible on many light terminals, so only dim on dark backgrounds.
func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorChromeFg   lipgloss.TerminalColor = ac("240", "245")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorCardBorder lipgloss.TerminalColor = ac("250", "243")
	colorSelBorder  lipgloss.TerminalColor = ac("232", "255")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorAccentFg   lipgloss.TerminalColor = ac("255", "235")
	colorError      lipgloss.TerminalColor = ac("160", "203")
	colorErrorBg    lipgloss.TerminalColor = ac("196", "160")
	colorWarn       lipgloss.TerminalColor = ac("130", "214")
	colorOK         lipgloss.TerminalColor = ac("28", "78")
	colorModalBg    lipgloss.TerminalColor = ac("255", "235")
	colorModalFg    lipgloss.TerminalColor = ac("235", "252")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleHeading() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorChromeFg)
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Bold(true)
}

func styleTab(active bool) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return st.Background(colorAccent).Foreground(colorAccentFg).Bold(true)
	}
	return st.Foreground(colorChromeFg)
}

func styleBadge() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorErrorBg).Foreground(lipgloss.Color("255")).Bold(true).Padding(0, 1)
}

func styleError() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorError)
}

func styleOverdueStrip() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorErrorBg).Foreground(lipgloss.Color("255")).Padding(0, 1)
}

func styleCard(selected bool) lipgloss.Style {
	st := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if selected {
		return st.BorderForeground(colorSelBorder)
	}
	return st.BorderForeground(colorCardBorder)
}

func styleModal() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Background(colorModalBg).
		Foreground(colorModalFg).
		Padding(1, 2)
}

func statusColor(s string) lipgloss.TerminalColor {
	switch s {
	case "ongoing":
		return colorAccent
	case "finished":
		return colorOK
	case "cancelled":
		return colorMuted
	default:
		return colorWarn
	}
}

// applyColorProfilePreference honors NO_COLOR only. termenv.EnvColorProfile would also
// honor CLICOLOR, which is meant for piped CLI output, not a full-screen UI.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	term := strings.ToLower(os.Getenv("TERM"))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color") && profile != termenv.TrueColor:
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference picks the light or dark palette.
//
// Priority:
// 1) TASKFLOW_TUI_THEME=light|dark|auto
// 2) COLORFGBG heuristic ("fg;bg", last segment is the background)
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKFLOW_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
