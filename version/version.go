package version

// Name is reported by the `name` command.
const Name = "PathMessages"

// Version is reported by the `version` command. Lift expects the API version
// the tool implements, not a release number.
var Version = "1"
