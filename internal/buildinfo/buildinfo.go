// Package buildinfo holds values stamped at link time:
//
//	go build -ldflags "-X github.com/osvaldoandrade/repozip/internal/buildinfo.Version=v1.2.3"
package buildinfo

var (
	Version = "dev"
	Commit  = ""
)

// UserAgent is sent on every outgoing request.
func UserAgent() string {
	return "repozip/" + Version
}
