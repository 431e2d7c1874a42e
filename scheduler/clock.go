package scheduler

import "time"

func realNow() time.Time {
	return time.Now()
}
