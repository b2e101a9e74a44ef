package notify

import "time"

func SetClock(a *AMQPNotifier, now func() time.Time) {
	a.now = now
}
