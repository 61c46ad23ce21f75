package appkeeper

// Version is the release of the appkeeper module, reported by the CLI when
// build info carries no module version.
const Version = "0.1.0"
