package version

var Version = "v0.2.0"
