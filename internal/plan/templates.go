package plan

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kestrelworks/hive/pkg/models"
)

// Category is the coarse instruction class used to pick a template chain.
type Category string

const (
	// CategoryAppLaunch covers opening, starting, and quitting applications.
	CategoryAppLaunch Category = "application-launch"
	// CategoryWeb covers browsing, searching, and downloading.
	CategoryWeb Category = "web"
	// CategoryDocument covers creating reports, spreadsheets, and slides.
	CategoryDocument Category = "document"
	// CategoryFilesystem covers file and folder operations.
	CategoryFilesystem Category = "filesystem"
	// CategoryGeneral is the fallback for everything else.
	CategoryGeneral Category = "general"
)

// step is one templated subtask before IDs are assigned. Dependencies
// reference earlier steps by index.
type step struct {
	description string
	role        models.AgentType
	deps        []int
}

// ClassifyInstruction assigns an instruction to a template category.
// Document keywords win over web, web over filesystem, filesystem over
// app launch; the order matters for instructions like "download the file".
func ClassifyInstruction(instruction string) Category {
	lower := strings.ToLower(instruction)

	switch {
	case containsAny(lower, "document", "report", "spreadsheet", "presentation",
		"pdf", "pptx", "excel", "word"):
		return CategoryDocument
	case containsAny(lower, "search", "website", "browse", "download", "google", "url"):
		return CategoryWeb
	case containsAny(lower, "file", "folder", "move", "copy", "rename", "delete"):
		return CategoryFilesystem
	case containsAny(lower, "open", "launch", "start", "close", "quit"):
		return CategoryAppLaunch
	default:
		return CategoryGeneral
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// templateSteps produces the template chain for an instruction.
func templateSteps(instruction string) []step {
	switch ClassifyInstruction(instruction) {
	case CategoryAppLaunch:
		return appLaunchSteps(instruction)
	case CategoryWeb:
		return webSteps(instruction)
	case CategoryDocument:
		return documentSteps(instruction)
	case CategoryFilesystem:
		return filesystemSteps(instruction)
	default:
		return generalSteps(instruction)
	}
}

func appLaunchSteps(instruction string) []step {
	lower := strings.ToLower(instruction)
	app := extractAppName(instruction)

	// Launching or quitting an app is a single action; a multi-step chain
	// would only add reasoning calls for something the executor confirms
	// itself.
	if containsAny(lower, "close", "quit") {
		return []step{
			{description: fmt.Sprintf("Quit application: %s and confirm it is no longer running", app), role: models.AgentExecutor},
		}
	}

	return []step{
		{description: fmt.Sprintf("Launch application: %s and confirm it is open and frontmost", app), role: models.AgentExecutor},
	}
}

func webSteps(instruction string) []step {
	return []step{
		{description: "Launch the web browser", role: models.AgentExecutor},
		{description: "Wait for the browser to be ready", role: models.AgentExecutor, deps: []int{0}},
		{description: "Observe the current browser state", role: models.AgentExecutor, deps: []int{1}},
		{description: fmt.Sprintf("Complete web task: %s", instruction), role: models.AgentExecutor, deps: []int{2}},
		{description: fmt.Sprintf("Verify the web task finished: %s", instruction), role: models.AgentVerifier, deps: []int{3}},
	}
}

func documentSteps(instruction string) []step {
	return []step{
		{description: "Capture the current workspace state", role: models.AgentExecutor},
		{description: fmt.Sprintf("Create the requested document: %s", instruction), role: models.AgentSpecialist, deps: []int{0}},
		{description: "Verify the document was created and is well formed", role: models.AgentVerifier, deps: []int{1}},
	}
}

func filesystemSteps(instruction string) []step {
	return []step{
		{description: "List the relevant files to understand the current state", role: models.AgentExecutor},
		{description: fmt.Sprintf("Perform the file operation: %s", instruction), role: models.AgentExecutor, deps: []int{0}},
		{description: "Verify the file operation succeeded", role: models.AgentVerifier, deps: []int{1}},
	}
}

// generalSteps is the observe, reason, act, verify fallback chain.
func generalSteps(instruction string) []step {
	return []step{
		{description: "Observe the current state of the environment", role: models.AgentExecutor},
		{description: fmt.Sprintf("Work out the best approach for: %s", instruction), role: models.AgentPlanner, deps: []int{0}},
		{description: fmt.Sprintf("Carry out the task: %s", instruction), role: models.AgentExecutor, deps: []int{1}},
		{description: fmt.Sprintf("Verify the task completed: %s", instruction), role: models.AgentVerifier, deps: []int{2}},
	}
}

// knownApps maps instruction keywords to canonical application names.
var knownApps = []struct {
	keyword string
	name    string
}{
	{"chrome", "Google Chrome"},
	{"safari", "Safari"},
	{"firefox", "Firefox"},
	{"slack", "Slack"},
	{"discord", "Discord"},
	{"spotify", "Spotify"},
	{"vscode", "Visual Studio Code"},
	{"code", "Visual Studio Code"},
	{"terminal", "Terminal"},
	{"finder", "Finder"},
	{"notes", "Notes"},
	{"mail", "Mail"},
	{"calendar", "Calendar"},
	{"messages", "Messages"},
	{"photos", "Photos"},
	{"music", "Music"},
	{"preview", "Preview"},
	{"textedit", "TextEdit"},
	{"pages", "Pages"},
	{"numbers", "Numbers"},
	{"keynote", "Keynote"},
	{"xcode", "Xcode"},
	{"figma", "Figma"},
	{"notion", "Notion"},
	{"obsidian", "Obsidian"},
	{"iterm", "iTerm"},
	{"zoom", "zoom.us"},
	{"teams", "Microsoft Teams"},
	{"excel", "Microsoft Excel"},
	{"powerpoint", "Microsoft PowerPoint"},
}

// extractAppName pulls an application name out of a launch-style
// instruction, falling back to the word after the trigger verb.
func extractAppName(instruction string) string {
	lower := strings.ToLower(instruction)

	for _, app := range knownApps {
		if strings.Contains(lower, app.keyword) {
			return app.name
		}
	}

	for _, trigger := range []string{"open ", "launch ", "start ", "close ", "quit "} {
		pos := strings.Index(lower, trigger)
		if pos == -1 {
			continue
		}
		after := instruction[pos+len(trigger):]
		fields := strings.Fields(after)
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimFunc(fields[0], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if name != "" {
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}

	return "Finder"
}
