package match

import (
	"time"

	"github.com/onetagger/autotagger-core/internal/model"
)

// MatchDuration gates a candidate on duration closeness: if match_duration
// is off, or either side's duration is zero/missing, the candidate passes;
// otherwise the absolute difference must be within maxDifference.
func MatchDuration(info *model.AudioFileInfo, candidate time.Duration, matchDuration bool, maxDifference time.Duration) bool {
	if !matchDuration || info.Duration == nil {
		return true
	}

	infoDuration := *info.Duration
	if infoDuration == 0 || candidate == 0 {
		return true
	}

	diff := infoDuration - candidate
	if diff < 0 {
		diff = -diff
	}

	return diff <= maxDifference
}
