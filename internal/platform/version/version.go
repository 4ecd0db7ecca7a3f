package version

import "runtime"

// Build information, injected via ldflags at build time:
//
//	go build -ldflags "-X github.com/pscheid92/ecotrack/internal/platform/version.Version=v1.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// Labels returns the build info as label values in build_info metric order.
func (i Info) Labels() []string {
	return []string{i.Version, i.Commit, i.BuildTime, i.GoVersion}
}
