package main

import "reading-gen/cmd"

var (
	version = "0.1.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
