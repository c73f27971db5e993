package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/buildctl/internal/addons"
)

// Palette
var (
	Primary   = lipgloss.Color("#E0A526") // Build engine amber
	Secondary = lipgloss.Color("#D9534F") // Duke red
	Success   = lipgloss.Color("#50FA7B")
	Warning   = lipgloss.Color("#FFB86C")
	Error     = lipgloss.Color("#FF5555")
	Muted     = lipgloss.Color("#6272A4")
	Text      = lipgloss.Color("#F8F8F2")
	Subtle    = lipgloss.Color("#44475A")
)

var (
	Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#1E1E1E")).
		Background(Primary).
		Padding(0, 1).
		Bold(true)

	NormalText  = lipgloss.NewStyle().Foreground(Text)
	MutedText   = lipgloss.NewStyle().Foreground(Muted)
	SuccessText = lipgloss.NewStyle().Foreground(Success)
	WarningText = lipgloss.NewStyle().Foreground(Warning)
	ErrorText   = lipgloss.NewStyle().Foreground(Error)

	Highlighted = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	App = lipgloss.NewStyle().Padding(1, 2)

	Help    = lipgloss.NewStyle().Foreground(Muted)
	Spinner = lipgloss.NewStyle().Foreground(Primary)

	// Tab headers of the catalog browser
	ActiveTab   = lipgloss.NewStyle().Foreground(Primary).Bold(true).Underline(true).Padding(0, 1)
	InactiveTab = lipgloss.NewStyle().Foreground(Muted).Padding(0, 1)
)

var (
	CheckMark = lipgloss.NewStyle().Foreground(Success).SetString("✓")
	CrossMark = lipgloss.NewStyle().Foreground(Error).SetString("✗")
)

// Addon listing
var (
	AddonName    = lipgloss.NewStyle().Foreground(Text).Bold(true)
	AddonVersion = lipgloss.NewStyle().Foreground(Muted)
	AddonEnabled = lipgloss.NewStyle().Foreground(Success)
	AddonOff     = lipgloss.NewStyle().Foreground(Warning)
	AddonStar    = lipgloss.NewStyle().Foreground(Primary)

	OfficialBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(Primary).
			Bold(true).
			Padding(0, 1)
)

// FormatModState renders the enabled flag of a mod
func FormatModState(enabled bool) string {
	if enabled {
		return AddonEnabled.Render("enabled")
	}
	return AddonOff.Render("disabled")
}

// FormatVersion renders a version, or "unversioned"
func FormatVersion(v string) string {
	if v == "" {
		return AddonVersion.Render("unversioned")
	}
	return AddonVersion.Render("v" + v)
}

// FormatNewerInstalled marks an addon shadowed by a newer installed version
func FormatNewerInstalled() string {
	return lipgloss.NewStyle().Foreground(Primary).Bold(true).Render("↑ newer installed")
}

// FormatFavorite returns a star for favorites
func FormatFavorite(fav bool) string {
	if !fav {
		return ""
	}
	return AddonStar.Render("★")
}

// FormatVariant labels how an addon is loaded
func FormatVariant(v addons.Variant) string {
	switch v {
	case addons.VariantOfficialCampaign:
		return OfficialBadge.Render("official")
	case addons.VariantStandalone:
		return MutedText.Render("standalone")
	case addons.VariantCustomConversion:
		return MutedText.Render("conversion")
	case addons.VariantSingleMap:
		return MutedText.Render("map")
	default:
		return MutedText.Render("mod")
	}
}

// FormatSuccess formats a success message
func FormatSuccess(msg string) string {
	return CheckMark.String() + " " + SuccessText.Render(msg)
}

// FormatError formats an error message
func FormatError(msg string) string {
	return CrossMark.String() + " " + ErrorText.Render(msg)
}

// FormatWarning formats a warning message
func FormatWarning(msg string) string {
	return WarningText.Render("! " + msg)
}
