package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary    = lipgloss.Color("#A78BFA") // Violet accent
	Secondary  = lipgloss.Color("#38BDF8") // Sky
	Success    = lipgloss.Color("#10B981") // Emerald
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)
)

// Box styles
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	InfoBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(1, 2)
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Align(lipgloss.Center)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

	TableRowStyle = tableCellStyle.Foreground(lipgloss.Color("255"))

	TableRowAltStyle = tableCellStyle.Foreground(lipgloss.Color("245"))
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)

// Emoji helpers for consistent iconography
const (
	IconRoom    = "🚪"
	IconCall    = "📞"
	IconMic     = "🎙️"
	IconCamera  = "🎥"
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconHost    = "👑"
	IconPeer    = "👤"
)

// PrintTitle prints a styled section title
func PrintTitle(text string) {
	fmt.Println(TitleStyle.Render(text))
}

// PrintSuccess prints a success message with icon
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), message)
}

// PrintError prints an error message with icon
func PrintError(message string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), message)
}

// PrintWarning prints a warning message with icon
func PrintWarning(message string) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), message)
}

// PrintInfo prints an informational message with icon
func PrintInfo(message string) {
	fmt.Printf("%s %s\n", IconInfo, message)
}

// PrintRoomCode prints the room code in a highlighted box
func PrintRoomCode(roomID string) {
	content := fmt.Sprintf("%s Room code\n\n%s", IconRoom, BoldStyle.Render(roomID))
	fmt.Println(BoxStyle.Render(content))
}
