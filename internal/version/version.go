package version

import (
	"fmt"
	"runtime/debug"
)

var (
	tag       = "dev" // set via ldflags
	commit    = "123abc"
	buildTime = "now"
)

const template = "%s (%s) built at %s\nhttps://github.com/avocado-app/foodscore/releases/tag/%s"

// buildInfoReader can be swapped in tests.
var buildInfoReader = defaultBuildInfoReader

func defaultBuildInfoReader() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

// String renders the version from ldflags, falling back to VCS build info
// when ldflags were not set.
func String() string {
	currentCommit := commit
	currentDate := buildTime

	info, ok := buildInfoReader()
	if ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && commit == "123abc" {
				currentCommit = setting.Value
			}
			if setting.Key == "vcs.time" && buildTime == "now" {
				currentDate = setting.Value
			}
		}
	}

	return fmt.Sprintf(template, tag, currentCommit, currentDate, tag)
}
