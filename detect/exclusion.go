package detect

import (
	"github.com/pathmessages/pathmessages/config"
	"github.com/pathmessages/pathmessages/logging"
)

// Excluded reports whether one of the rule's also_changed patterns matches
// a changed file. Pattern errors leave the rule active.
func Excluded(rule config.Rule, changedFiles []string) bool {
	if rule.Exclusion == nil || len(rule.Exclusion.AlsoChanged) == 0 {
		return false
	}

	matches, err := MatchPaths(rule.Exclusion.AlsoChanged, changedFiles)
	if err != nil {
		logging.Warn().Err(err).Str("rule", rule.Title).Msg("ignoring exclusion with invalid pattern")
		return false
	}
	return len(matches) > 0
}
