package version

import "runtime/debug"

// Version is set at build time, e.g.
// go build -ldflags "-X github.com/yuu528/ModSynth/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binary was built from, with a -dirty
// suffix for modified trees.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return revision(info.Settings)
}()

// VersionOrHash is what modsynth-play -v prints.
var VersionOrHash = pick(Version, Hash)

func revision(settings []debug.BuildSetting) string {
	var rev string
	modified := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && modified {
		rev += "-dirty"
	}
	return rev
}

func pick(version, hash string) string {
	switch {
	case version != "":
		return version
	case hash != "":
		return hash
	}
	return "devel"
}
