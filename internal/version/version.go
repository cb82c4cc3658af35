package version

// Version is the release tag stamped at build time.
var Version = "0.2.0"
