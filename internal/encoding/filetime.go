package encoding

import "time"

// FILETIME is 100-nanosecond intervals since January 1, 1601.
const windowsEpochDiff = 116444736000000000

// TimeToFiletime converts Go time to Windows FILETIME.
func TimeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100) + windowsEpochDiff
}

// FiletimeToTime converts Windows FILETIME to Go time.Time.
func FiletimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(ft-windowsEpochDiff)*100)
}
