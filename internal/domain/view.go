package domain

// View is the screen the user is looking at.
type View string

const (
	ViewDashboard  View = "DASHBOARD"
	ViewHistory    View = "HISTORY"
	ViewCategories View = "CATEGORIES"
	ViewAnalysis   View = "ANALYSIS"
	ViewAgenda     View = "AGENDA"
	ViewAbout      View = "ABOUT"
)

// Mode is what a wake word switches the assistant into.
type Mode string

const (
	ModeFinance Mode = "finance"
	ModeAgenda  Mode = "agenda"
)

// ViewForWake picks the view to show after waking in mode from current.
// Finance only leaves the current screen when it is not a finance screen.
func ViewForWake(mode Mode, current View) View {
	if mode == ModeAgenda {
		return ViewAgenda
	}
	if current == ViewAgenda || current == ViewAbout || current == "" {
		return ViewDashboard
	}
	return current
}
