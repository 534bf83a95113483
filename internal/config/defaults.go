package config

// DefaultSummaryPrompt is the style guide used when summary_prompt is unset.
const DefaultSummaryPrompt = "Create a brief, professional summary for listening while driving. " +
	"Focus on key actionable items and important matters that need attention. " +
	"Be concise and skip pleasantries. Organize by priority and urgency."

const (
	// DefaultCatchAll is the label applied when no configured label matches.
	DefaultCatchAll = "Other"
	// DefaultProcessed marks threads the classifier has already evaluated.
	DefaultProcessed = "sorted"
)

// Defaults is the immutable fallback configuration injected into the
// resolver and the jobs.
type Defaults struct {
	Labels     LabelSet
	Parameters Parameters
	CatchAll   string
	Processed  string
}

// BuiltinDefaults returns the defaults used when nothing else is configured.
func BuiltinDefaults() Defaults {
	return Defaults{
		Labels: NewLabelSet(
			Label{Name: "AI", Description: "Emails involving AI, machine learning or language models"},
			Label{Name: "Work", Description: "Emails related to work, projects, or colleagues"},
			Label{Name: "Personal", Description: "Emails from friends and family"},
			Label{Name: DefaultCatchAll, Description: "Any other email"},
		),
		Parameters: Parameters{
			EmailCount:         10,
			Model:              "gpt-4o",
			APIKey:             APIKeyPlaceholder,
			Resorting:          false,
			Style:              StyleDays,
			DayCount:           1,
			MaxWords:           500,
			SummaryDays:        3,
			SummaryCount:       20,
			SummaryTimeMinutes: 20,
			SummaryPrompt:      DefaultSummaryPrompt,
			SummaryCompression: CompressionStandard,
		},
		CatchAll:  DefaultCatchAll,
		Processed: DefaultProcessed,
	}
}
